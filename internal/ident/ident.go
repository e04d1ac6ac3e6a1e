// Package ident builds the deterministic identifiers annotations use to refer to each other.
//
// Sentence-scoped ids have the form "<prefix><sentence>_<local>" and
// document-scoped ids the form "<prefix><n>". Every annotation type has its
// own prefix, so ids of different types never collide.
package ident

import (
	"errors"
	"fmt"
	"strconv"
)

// Prefixes per annotation kind
const (
	PrefixToken    = "tk_"
	PrefixMarkable = "m_"
	PrefixRelation = "rel_"
	PrefixView     = "v"
)

// ErrIndex is returned for sentence or local indices below 1
var ErrIndex = errors.New("identifier index must be >= 1")

// Make returns "<prefix><sentenceIndex>_<localIndex>"
func Make(prefix string, sentenceIndex, localIndex int) string {
	return prefix + strconv.Itoa(sentenceIndex) + "_" + strconv.Itoa(localIndex)
}

// MakeScoped returns "<prefix><index>" for document-scoped ids such as view ids
func MakeScoped(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}

// Validate checks the index constraints of Make
func Validate(sentenceIndex, localIndex int) error {
	if sentenceIndex < 1 || localIndex < 1 {
		return fmt.Errorf("%w: sentence=%d local=%d", ErrIndex, sentenceIndex, localIndex)
	}
	return nil
}

// Counter issues monotonically increasing local indices starting at 1
type Counter struct {
	last int
}

// Next returns the next local index
func (c *Counter) Next() int {
	c.last++
	return c.last
}

// Issued returns how many indices have been handed out
func (c *Counter) Issued() int {
	return c.last
}
