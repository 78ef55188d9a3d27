package playbook

import (
	"errors"
	"fmt"
)

// DefaultID names the built-in sponsorship marketplace script.
const DefaultID = "sponsorship"

// Rule maps a set of trigger keywords to one canned reply.
type Rule struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Reply    string   `json:"reply" yaml:"reply"`
}

// Table is evaluated top to bottom; the first rule whose keyword appears wins.
type Table struct {
	Rules   []Rule `json:"rules" yaml:"rules"`
	Default Rule   `json:"default" yaml:"default"`
}

// Playbook is the data form of a scripted widget conversation.
type Playbook struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Greeting          string   `json:"greeting" yaml:"greeting"`
	BrandKeywords     []string `json:"brandKeywords" yaml:"brandKeywords"`
	OrganizerKeywords []string `json:"organizerKeywords" yaml:"organizerKeywords"`
	BrandWelcome      string   `json:"brandWelcome" yaml:"brandWelcome"`
	OrganizerWelcome  string   `json:"organizerWelcome" yaml:"organizerWelcome"`
	Clarify           string   `json:"clarify" yaml:"clarify"`
	Brand             Table    `json:"brand" yaml:"brand"`
	Organizer         Table    `json:"organizer" yaml:"organizer"`
}

// Validate reports the first structural problem in the playbook.
func (p Playbook) Validate() error {
	if p.ID == "" {
		return errors.New("playbook id is required")
	}
	if p.Greeting == "" {
		return fmt.Errorf("playbook %s: greeting is required", p.ID)
	}
	if len(p.BrandKeywords) == 0 || len(p.OrganizerKeywords) == 0 {
		return fmt.Errorf("playbook %s: both classifier keyword sets are required", p.ID)
	}
	for name, reply := range map[string]string{
		"brandWelcome":     p.BrandWelcome,
		"organizerWelcome": p.OrganizerWelcome,
		"clarify":          p.Clarify,
	} {
		if reply == "" {
			return fmt.Errorf("playbook %s: %s reply is required", p.ID, name)
		}
	}
	for name, table := range map[string]Table{"brand": p.Brand, "organizer": p.Organizer} {
		for i, rule := range table.Rules {
			if len(rule.Keywords) == 0 {
				return fmt.Errorf("playbook %s: %s rule %d has no keywords", p.ID, name, i)
			}
			if rule.Reply == "" {
				return fmt.Errorf("playbook %s: %s rule %d has no reply", p.ID, name, i)
			}
		}
		if table.Default.Reply == "" {
			return fmt.Errorf("playbook %s: %s table needs a default reply", p.ID, name)
		}
	}
	return nil
}

// Seed provides the marketplace assistant script shipped with the widget.
func Seed() []Playbook {
	return []Playbook{
		{
			ID:                DefaultID,
			Name:              "Sponsorship marketplace assistant",
			Greeting:          "Hi there! 👋 Welcome to SponsorLink. Are you a brand looking to sponsor events, or an event organizer looking for sponsors?",
			BrandKeywords:     []string{"sponsor", "brand", "advertise", "promote", "company"},
			OrganizerKeywords: []string{"event", "organiz", "organis", "host", "conference", "finding sponsors"},
			BrandWelcome:      "Great! As a brand you can browse events looking for sponsors and place bids on the ones that fit. What type of events are you interested in sponsoring?",
			OrganizerWelcome:  "Excellent! As an event organizer you can list your event and receive sponsorship bids from brands. Would you like to know how to post your event?",
			Clarify:           "I'd love to help! Could you tell me whether you're a brand looking to sponsor events or an event organizer looking for sponsors?",
			Brand: Table{
				Rules: []Rule{
					{
						Intent:   "budget",
						Keywords: []string{"budget", "cost", "price", "invest", "expensive"},
						Reply:    "Sponsorship packages on SponsorLink typically range from AED 5,000 to AED 50,000+, depending on the event size and the visibility you're after. Would you like me to show you the different sponsorship tiers?",
					},
					{
						Intent:   "category",
						Keywords: []string{"type", "kind", "category", "industry"},
						Reply:    "We have events across many industries: technology, sports, music and entertainment, business and finance, health and wellness, and education. Which industry would you prefer to sponsor?",
					},
					{
						Intent:   "benefits",
						Keywords: []string{"benefit", "get", "value", "worth", "roi"},
						Reply:    "Sponsors typically get logo placement, booth space, speaking slots, social media mentions and direct access to the event audience. What matters most to you?",
					},
				},
				Default: Rule{
					Intent: "browse",
					Reply:  "I can help you browse events that are looking for sponsors, or narrow them down by budget, industry or audience. What would you like to do?",
				},
			},
			Organizer: Table{
				Rules: []Rule{
					{
						Intent:   "listing",
						Keywords: []string{"list", "add", "post", "publish", "create"},
						Reply:    "Listing is easy: click \"Post Your Event\", fill in your event details, audience size and the sponsorship packages you offer, then submit. Brands can start bidding as soon as it's live.",
					},
					{
						Intent:   "fee",
						Keywords: []string{"fee", "commission", "cost", "pay", "charge"},
						Reply:    "Posting your event is free. We charge a flat 5% commission only when a sponsorship deal is completed, so there's no upfront cost.",
					},
					{
						Intent:   "timeline",
						Keywords: []string{"time", "long", "when", "soon", "process"},
						Reply:    "We recommend listing your event 3-6 months ahead so brands have time to plan. Once posted, your event is usually visible to sponsors within about 24 hours.",
					},
				},
				Default: Rule{
					Intent: "getting-started",
					Reply:  "I can help you post your event or explain how sponsorship packages work. Which would you like to start with?",
				},
			},
		},
	}
}
