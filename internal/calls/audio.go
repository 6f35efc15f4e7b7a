package calls

// AudioEncoding of the carrier media stream.
type AudioEncoding string

const (
	EncodingLinear16 AudioEncoding = "linear16"
	EncodingMulaw    AudioEncoding = "mulaw"
)

// AudioProfile is the fixed media format a carrier's streaming transport
// emits and expects. It is not user configurable.
type AudioProfile struct {
	SamplingRate int
	Encoding     AudioEncoding
	// ChunkSize is the minimal chunk size in bytes.
	ChunkSize   int
	ContentType string
}

var (
	twilioAudio = AudioProfile{SamplingRate: 8000, Encoding: EncodingMulaw, ChunkSize: 20 * 160, ContentType: "audio/x-mulaw;rate=8000"}
	// 20ms at 16kHz, 16-bit samples.
	vonageAudio = AudioProfile{SamplingRate: 16000, Encoding: EncodingLinear16, ChunkSize: 640, ContentType: "audio/l16;rate=16000"}
	// Exotel voicebot applet: 16-bit little-endian PCM, 8kHz mono, 20ms minimum chunk.
	exotelAudio = AudioProfile{SamplingRate: 8000, Encoding: EncodingLinear16, ChunkSize: 320, ContentType: "audio/x-l16;rate=8000"}
	plivoAudio  = AudioProfile{SamplingRate: 8000, Encoding: EncodingMulaw, ChunkSize: 20 * 160, ContentType: "audio/x-mulaw;rate=8000"}
)

// Audio returns the audio profile of a provider.
func Audio(p Provider) (AudioProfile, error) {
	switch p {
	case ProviderTwilio:
		return twilioAudio, nil
	case ProviderVonage:
		return vonageAudio, nil
	case ProviderExotel:
		return exotelAudio, nil
	case ProviderPlivo:
		return plivoAudio, nil
	default:
		return AudioProfile{}, ErrUnsupportedProvider
	}
}
