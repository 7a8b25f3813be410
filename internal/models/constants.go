package models

const (
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleSystem = "system"

	StatusReady       = "ready"
	StatusNoDocuments = "no_documents"

	MetaSource   = "source"
	MetaPage     = "page"
	MetaPosition = "position"

	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`

	NoContextAnswer = "No documents loaded. Please upload documents first."
)

var (
	SystemPrompt = `You are a professional and friendly assistant that answers questions about the user's documents.
Answer directly and confidently. Use bullet points or bold text when it makes the answer easier to read.
Base your answer on the knowledge base below. When it does not cover the question, say so briefly and answer from general knowledge.
Do not invent document names.`

	KnowledgeBaseTemplate = `Knowledge base:
%s`

	SourceLineTemplate = "[source: %s]\n%s"
)
