package calls

// TranscriberProfile configures the external speech-to-text stage.
// It is a comparable value so defaults can be checked with ==.
type TranscriberProfile struct {
	Type          string        `json:"type"`
	SamplingRate  int           `json:"sampling_rate"`
	AudioEncoding AudioEncoding `json:"audio_encoding"`
	ChunkSize     int           `json:"chunk_size"`
	Model         string        `json:"model,omitempty"`
	Tier          string        `json:"tier,omitempty"`
	Language      string        `json:"language,omitempty"`
	Endpointing   string        `json:"endpointing,omitempty"`
}

func (p TranscriberProfile) IsZero() bool { return p == TranscriberProfile{} }

// SynthesizerProfile configures the external speech-synthesis stage.
type SynthesizerProfile struct {
	Type          string        `json:"type"`
	SamplingRate  int           `json:"sampling_rate"`
	AudioEncoding AudioEncoding `json:"audio_encoding"`
	Voice         string        `json:"voice,omitempty"`
	Language      string        `json:"language,omitempty"`
}

func (p SynthesizerProfile) IsZero() bool { return p == SynthesizerProfile{} }

// AgentProfile is opaque to this layer; it is handed to the dialogue agent as-is.
type AgentProfile struct {
	Type           string         `json:"type,omitempty"`
	Prompt         string         `json:"prompt,omitempty"`
	InitialMessage string         `json:"initial_message,omitempty"`
	Settings       map[string]any `json:"settings,omitempty"`
}

const (
	transcriberDeepgram   = "deepgram"
	synthesizerAzure      = "azure"
	endpointingPunctuated = "punctuation_based"
)

func defaultTranscriber(a AudioProfile, language string) TranscriberProfile {
	return TranscriberProfile{
		Type:          transcriberDeepgram,
		SamplingRate:  a.SamplingRate,
		AudioEncoding: a.Encoding,
		ChunkSize:     a.ChunkSize,
		Model:         "phonecall",
		Tier:          "nova",
		Language:      language,
		Endpointing:   endpointingPunctuated,
	}
}

func defaultSynthesizer(a AudioProfile) SynthesizerProfile {
	return SynthesizerProfile{
		Type:          synthesizerAzure,
		SamplingRate:  a.SamplingRate,
		AudioEncoding: a.Encoding,
	}
}

// DefaultTranscriber returns the default transcriber profile for a provider kind.
func DefaultTranscriber(p Provider) (TranscriberProfile, error) {
	t, err := zeroVariant(p)
	if err != nil {
		return TranscriberProfile{}, err
	}
	return t.DefaultTranscriber(), nil
}

// DefaultSynthesizer returns the default synthesizer profile for a provider kind.
func DefaultSynthesizer(p Provider) (SynthesizerProfile, error) {
	t, err := zeroVariant(p)
	if err != nil {
		return SynthesizerProfile{}, err
	}
	return t.DefaultSynthesizer(), nil
}
