package factory

import (
	"fmt"
	"time"

	"claim-pipeline-be/pkg/llm"
	"claim-pipeline-be/pkg/llm/ollama"
	"claim-pipeline-be/pkg/llm/openai"
)

// NewLLMProvider returns nil without error when providerType is "none", which
// leaves the evidence stages and synthesis without a reasoning backend.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "openai", "huggingface", "azure":
		if baseURL == "" && providerType == "huggingface" {
			baseURL = "https://router.huggingface.co/v1"
		}
		return openai.NewProvider(apiKey, baseURL, modelName, timeout), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
