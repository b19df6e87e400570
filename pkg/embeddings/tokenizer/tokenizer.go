// Package tokenizer counts tokens for providers that do not report usage.
package tokenizer

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by OpenAI's embedding models.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding. The encoding is loaded on
// first use; if it cannot be loaded, Count falls back to Estimate.
type Counter struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// New returns a Counter for the named encoding, or DefaultEncoding if empty.
func New(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Counter{encoding: encoding}
}

// Count returns the total number of tokens across texts.
func (c *Counter) Count(texts ...string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.encoding)
	})

	total := 0
	for _, t := range texts {
		if c.err != nil {
			total += Estimate(t)
			continue
		}
		total += len(c.enc.Encode(t, nil, nil))
	}
	return total
}

// Err reports why the encoding could not be loaded, if it could not.
func (c *Counter) Err() error {
	return c.err
}

// Estimate approximates tokens as one per four characters, rounded up.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
