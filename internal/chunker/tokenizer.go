package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens in text. The chunk budget is measured in the
// counter's units, so the counter must be deterministic: the same text always
// yields the same count.
type TokenCounter interface {
	Count(text string) int
}

// encodingName is the BPE encoding used for the token budget.
const encodingName = "cl100k_base"

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a TokenCounter backed by the cl100k_base BPE
// encoding.
func NewTiktokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encodingName, err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
