package speech

// Chunk is one bounded, ordered segment of the text being synthesized.
type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// VoiceSettings is sent unchanged with every chunk of a job.
type VoiceSettings struct {
	Stability       float64 `json:"stability" mapstructure:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" mapstructure:"similarity_boost"`
	Style           float64 `json:"style" mapstructure:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost" mapstructure:"use_speaker_boost"`
}

// DefaultVoiceSettings returns the settings used when none are configured.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		UseSpeakerBoost: true,
	}
}

// AudioSegment is the raw audio returned for a single chunk.
type AudioSegment struct {
	ChunkIndex int
	Data       []byte
}

// AudioArtifact is the concatenated audio of every chunk of a job, in chunk order.
type AudioArtifact struct {
	JobID  string
	Chunks int
	Data   []byte
}

// Len returns the artifact size in bytes.
func (a *AudioArtifact) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}
