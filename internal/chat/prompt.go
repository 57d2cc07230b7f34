package chat

import (
	"fmt"
	"strings"

	"github.com/vitaai/vita/internal/knowledge"
)

// FallbackMessage is returned when no knowledge entry clears the
// similarity threshold. The assistant never answers from the model's
// own knowledge.
const FallbackMessage = "Maaf, saya tidak dapat menemukan informasi yang relevan untuk menjawab pertanyaan Anda. Silakan coba dengan pertanyaan yang lebih spesifik atau konsultasikan dengan tenaga medis profesional."

// contextSeparator joins retrieved entries in the prompt context block.
const contextSeparator = "\n\n---\n\n"

const promptTemplate = `You are Vita AI, a helpful medical assistant.

The following is retrieved knowledge from the database (RAG results).
Use ONLY this information to answer the question.

Retrieved context:
"""
%s
"""

User question:
%s

Instructions:
- Answer the user in the SAME language as the user question (if user asks in Indonesian, answer in Indonesian; if in English, answer in English).
- Summarize clearly, structured with sections: Definition, Causes, Symptoms, Diagnosis, Treatment, Outlook.
- If the user gives symptoms, suggest possible related conditions based on the retrieved context.
- If information is not found in the retrieved context, say so clearly.
- Always end with this disclaimer in the same language:
  "⚠️ Informasi ini hanya untuk tujuan edukasi dan bukan pengganti saran medis profesional. Silakan konsultasikan dengan tenaga medis untuk arahan yang lebih tepat."`

const titlePromptTemplate = `buatkan satu judul untuk conversation dengan prompt berikut
%s
berikan contoh satu saja dan langsung ke judulnya, judulnya jangan pakai tanda titik dua (:)`

// BuildPrompt assembles the grounded generation prompt from the user
// question and the retrieved entries. Entries are rendered in the order
// given, which is the retriever's similarity order.
func BuildPrompt(question string, results []knowledge.SimilarityResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("Title: %s\nContent: %s\nSource: %s", r.Title, r.Content, r.SourceURL)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(blocks, contextSeparator), question)
}

// BuildTitlePrompt assembles the prompt used to name a new conversation
// after its opening question.
func BuildTitlePrompt(question string) string {
	return fmt.Sprintf(titlePromptTemplate, question)
}
