package playbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsValid(t *testing.T) {
	for _, p := range Seed() {
		require.NoError(t, p.Validate(), p.ID)
	}
}

func TestSeedKeepsRuleOrder(t *testing.T) {
	p := Seed()[0]

	intents := func(table Table) []string {
		out := make([]string, 0, len(table.Rules))
		for _, r := range table.Rules {
			out = append(out, r.Intent)
		}
		return out
	}

	assert.Equal(t, []string{"budget", "category", "benefits"}, intents(p.Brand))
	assert.Equal(t, []string{"listing", "fee", "timeline"}, intents(p.Organizer))
	assert.Equal(t, []string{"sponsor", "brand", "advertise", "promote", "company"}, p.BrandKeywords)
}

func TestMemoryStoreReplacesDuplicateIDs(t *testing.T) {
	base := Seed()[0]
	override := base
	override.Greeting = "Hello!"

	store := NewMemoryStore([]Playbook{base, override})

	require.Len(t, store.List(), 1)
	got, ok := store.FindByID(DefaultID)
	require.True(t, ok)
	assert.Equal(t, "Hello!", got.Greeting)

	_, ok = store.FindByID("missing")
	assert.False(t, ok)
}

const sampleYAML = `
playbooks:
  - id: expo
    name: Expo desk
    greeting: Welcome to the expo desk!
    brandKeywords: [sponsor]
    organizerKeywords: [event]
    brandWelcome: Hello brand
    organizerWelcome: Hello organizer
    clarify: Brand or organizer?
    brand:
      rules:
        - intent: budget
          keywords: [budget]
          reply: Packages start small.
      default:
        intent: browse
        reply: Browse away.
    organizer:
      rules: []
      default:
        intent: getting-started
        reply: Post your event.
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playbooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, items, 1)

	p := items[0]
	assert.Equal(t, "expo", p.ID)
	assert.Equal(t, []string{"budget"}, p.Brand.Rules[0].Keywords)
	assert.Equal(t, "Post your event.", p.Organizer.Default.Reply)
}

func TestParseRejectsRuleWithoutKeywords(t *testing.T) {
	_, err := Parse([]byte(`
playbooks:
  - id: broken
    greeting: hi
    brandKeywords: [sponsor]
    organizerKeywords: [event]
    brandWelcome: Hello brand
    organizerWelcome: Hello organizer
    clarify: Brand or organizer?
    brand:
      rules:
        - intent: budget
          reply: nothing triggers me
      default: {reply: ok}
    organizer:
      default: {reply: ok}
`))
	require.Error(t, err)
}

func TestParseRequiresClassificationReplies(t *testing.T) {
	base := Seed()[0]

	cases := map[string]func(p *Playbook){
		"brand welcome":     func(p *Playbook) { p.BrandWelcome = "" },
		"organizer welcome": func(p *Playbook) { p.OrganizerWelcome = "" },
		"clarify":           func(p *Playbook) { p.Clarify = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}

	_, err := Parse([]byte(`
playbooks:
  - id: silent
    greeting: hi
    brandKeywords: [sponsor]
    organizerKeywords: [event]
    brand:
      default: {reply: ok}
    organizer:
      default: {reply: ok}
`))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
