package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type AskParams struct {
	Question string `json:"question" form:"question" validate:"required,max=4000"`
}

func (p *AskParams) Validate() map[string]string {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return map[string]string{"request": err.Error()}
		}
		fields := make(map[string]string)
		for _, e := range verrs {
			fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return fields
	}
	return nil
}

type AskResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	Content    string  `json:"content"`
	Document   string  `json:"document"`
	Similarity float32 `json:"similarity"`
}
