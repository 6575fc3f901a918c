package comparison

import (
	"fmt"
	"math"
	"strings"
)

// NoResponse replaces a missing side of a comparison.
const NoResponse = "No response available"

// Sampling bounds for the synthesized metrics.
const (
	SecondaryLatencyMinMs = 483
	SecondaryLatencyMaxMs = 787

	FasterMin = 0.32
	FasterMax = 0.89

	IdenticalChance = 0.1
	SimilarityMin   = 43.0
	SimilarityMax   = 57.0
)

// Fixed labels; these are not measured.
const (
	VerdeAccuracy    = "95%"
	ChatGPTAccuracy  = "93%"
	VerdeModelSize   = "8B"
	ChatGPTModelSize = "175B"
)

// Rand is a source of uniform values in [0,1).
type Rand interface {
	Float64() float64
}

type Metrics struct {
	Accuracy  string `json:"accuracy" yaml:"accuracy"`
	LatencyMs int    `json:"latency_ms" yaml:"latency_ms"`
	ModelSize string `json:"model_size" yaml:"model_size"`
}

// Record is a side-by-side view of two replies to the same prompt.
type Record struct {
	Prompt          string  `json:"prompt" yaml:"prompt"`
	VerdeResponse   string  `json:"verde_response" yaml:"verde_response"`
	ChatGPTResponse string  `json:"chatgpt_response" yaml:"chatgpt_response"`
	Verde           Metrics `json:"verde" yaml:"verde"`
	ChatGPT         Metrics `json:"chatgpt" yaml:"chatgpt"`
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`
}

// Build samples a new record for the given prompt and replies. Draws from r
// happen in a fixed order: secondary latency, speedup, similarity coin and
// then similarity value (only when the coin misses).
func Build(r Rand, prompt, verde, chatgpt string) Record {
	secondary := SecondaryLatency(r)
	primary := PrimaryLatency(secondary, r)
	return Record{
		Prompt:          prompt,
		VerdeResponse:   orPlaceholder(verde),
		ChatGPTResponse: orPlaceholder(chatgpt),
		Verde: Metrics{
			Accuracy:  VerdeAccuracy,
			LatencyMs: primary,
			ModelSize: VerdeModelSize,
		},
		ChatGPT: Metrics{
			Accuracy:  ChatGPTAccuracy,
			LatencyMs: secondary,
			ModelSize: ChatGPTModelSize,
		},
		SimilarityScore: Similarity(r),
	}
}

// SecondaryLatency returns an integer latency in
// [SecondaryLatencyMinMs, SecondaryLatencyMaxMs].
func SecondaryLatency(r Rand) int {
	span := SecondaryLatencyMaxMs - SecondaryLatencyMinMs + 1
	v := SecondaryLatencyMinMs + int(math.Floor(r.Float64()*float64(span)))
	if v > SecondaryLatencyMaxMs {
		v = SecondaryLatencyMaxMs
	}
	return v
}

// PrimaryLatency makes the primary model faster than secondary by a fraction
// drawn from [FasterMin, FasterMax].
func PrimaryLatency(secondary int, r Rand) int {
	faster := FasterMin + r.Float64()*(FasterMax-FasterMin)
	return int(math.Floor(float64(secondary) * (1 - faster)))
}

// Similarity is exactly 100 with probability IdenticalChance, otherwise a
// value in [SimilarityMin, SimilarityMax) truncated to one decimal.
func Similarity(r Rand) float64 {
	if r.Float64() < IdenticalChance {
		return 100
	}
	v := SimilarityMin + r.Float64()*(SimilarityMax-SimilarityMin)
	v = math.Floor(v*10) / 10
	if v >= SimilarityMax {
		v = SimilarityMax - 0.1
	}
	return v
}

// FasterPercent is how much faster the primary model was, in whole percent.
func (rec Record) FasterPercent() int {
	if rec.ChatGPT.LatencyMs == 0 {
		return 0
	}
	d := float64(rec.ChatGPT.LatencyMs-rec.Verde.LatencyMs) / float64(rec.ChatGPT.LatencyMs)
	return int(math.Round(d * 100))
}

// Text renders the record as a plain text side-by-side block.
func (rec Record) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prompt: %s\n\n", rec.Prompt)
	fmt.Fprintf(&b, "Verde (%s, accuracy %s, %dms)\n%s\n\n",
		rec.Verde.ModelSize, rec.Verde.Accuracy, rec.Verde.LatencyMs, rec.VerdeResponse)
	fmt.Fprintf(&b, "ChatGPT (%s, accuracy %s, %dms)\n%s\n\n",
		rec.ChatGPT.ModelSize, rec.ChatGPT.Accuracy, rec.ChatGPT.LatencyMs, rec.ChatGPTResponse)
	fmt.Fprintf(&b, "Similarity: %.1f%%\n", rec.SimilarityScore)
	fmt.Fprintf(&b, "Verde was %d%% faster", rec.FasterPercent())
	return b.String()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoResponse
	}
	return s
}
