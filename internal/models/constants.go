package models

const (
	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`
	FallbackAnswer   = "Answer is not available in the context"
)

var (
	QAPromptTemplate = `
Answer the question as detailed as possible from the provided context. If the answer is not in
the provided context, just say "` + FallbackAnswer + `", don't make up an answer.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`
)
