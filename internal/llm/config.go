package llm

// ModelTier selects a capability level without hard-coding model names
// at call sites.
type ModelTier string

const (
	// TierLite serves cheap structured extraction (filter criteria,
	// CV section parsing).
	TierLite ModelTier = "lite"
	// TierStandard serves moderate reasoning tasks.
	TierStandard ModelTier = "standard"
)

// Config maps tiers to concrete model names.
type Config struct {
	Models         map[ModelTier]string
	EmbeddingModel string
}

// DefaultConfig returns the default Gemini model mapping.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		EmbeddingModel: "text-embedding-004",
	}
}

// Model returns the model name for a tier, falling back to the standard
// tier, then lite, when the requested tier is not configured.
func (c *Config) Model(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
