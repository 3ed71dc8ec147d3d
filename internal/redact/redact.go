// Package redact replaces identifying item text with placeholders for demo
// mode.
package redact

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"devdash/internal/model"
)

// WordCount is the number of placeholder words replacing a title.
const WordCount = 5

var words = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore",
	"magna", "aliqua", "enim", "ad", "minim", "veniam", "quis", "nostrud", "exercitation",
	"ullamco", "laboris", "nisi", "ut", "aliquip", "ex", "ea", "commodo", "consequat",
}

// Redactor is safe for concurrent use.
type Redactor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Redactor with a fixed seed, for reproducible output.
func New(seed uint64) *Redactor {
	return &Redactor{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom returns a Redactor seeded from the clock.
func NewRandom() *Redactor {
	return New(uint64(time.Now().UnixNano()))
}

// Words returns n space-joined placeholder words.
func (r *Redactor) Words(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.words(n)
}

func (r *Redactor) words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = words[r.rng.IntN(len(words))]
	}
	return strings.Join(out, " ")
}

// JiraKey returns a synthetic "PROJ-<100..999>" key.
func (r *Redactor) JiraKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jiraKey()
}

func (r *Redactor) jiraKey() string {
	return "PROJ-" + strconv.Itoa(100+r.rng.IntN(900))
}

// Items returns redacted copies of items. Count, order, links, labels and
// time bounds are kept; titles and identifiers are replaced.
func (r *Redactor) Items(items []model.Item) []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Item, len(items))
	for i, it := range items {
		switch it.Ref.Kind {
		case model.RefGitHub:
			it.Ref = model.Ref{Kind: model.RefGitHub, Owner: "my-org", Repo: "my-repo", Number: it.Ref.Number}
		case model.RefJira:
			it.Ref = model.Ref{Kind: model.RefJira, Key: r.jiraKey()}
		}
		it.Title = r.words(WordCount)
		out[i] = it
	}
	return out
}
