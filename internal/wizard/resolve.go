package wizard

import (
	"fmt"

	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/session"
)

// Mode selects how a prior configuration record is treated on a re-run.
type Mode string

const (
	ModeUseAll   Mode = "use_all"
	ModeIgnore   Mode = "ignore"
	ModeOverride Mode = "override"
)

// recordField is one overridable field of the record, in prompt order.
type recordField struct {
	label string
	get   func(*session.Record) string
	set   func(*session.Record, string)
}

var overrideFields = []recordField{
	{"Subscription id", func(r *session.Record) string { return r.SubscriptionID }, func(r *session.Record, v string) { r.SubscriptionID = v }},
	{"Resource group", func(r *session.Record) string { return r.ResourceGroup }, func(r *session.Record, v string) { r.ResourceGroup = v }},
	{"Region", func(r *session.Record) string { return r.Region }, func(r *session.Record, v string) { r.Region = v }},
	{"Virtual network", func(r *session.Record) string { return r.VirtualNetwork }, func(r *session.Record, v string) { r.VirtualNetwork = v }},
	{"Subnet", func(r *session.Record) string { return r.Subnet }, func(r *session.Record, v string) { r.Subnet = v }},
	{"Naming prefix", func(r *session.Record) string { return r.NamingPrefix }, func(r *session.Record, v string) { r.NamingPrefix = v }},
	{"Storage account name", func(r *session.Record) string { return r.StorageAccount }, func(r *session.Record, v string) { r.StorageAccount = v }},
	{"Standard group id", func(r *session.Record) string { return r.StandardGroup.ID }, func(r *session.Record, v string) { r.StandardGroup = session.GroupRef{ID: v} }},
	{"Elevated group id", func(r *session.Record) string { return r.ElevatedGroup.ID }, func(r *session.Record, v string) { r.ElevatedGroup = session.GroupRef{ID: v} }},
	{"Host pool", func(r *session.Record) string { return r.HostPool }, func(r *session.Record, v string) { r.HostPool = v }},
	{"Workspace", func(r *session.Record) string { return r.Workspace }, func(r *session.Record, v string) { r.Workspace = v }},
	{"Application group", func(r *session.Record) string { return r.ApplicationGroup }, func(r *session.Record, v string) { r.ApplicationGroup = v }},
}

// ResolveConfig applies the chosen reuse mode to the prior record and returns
// the record the rest of the workflow starts from. Resolved references still
// need liveness checks before use; a prior record may point at deleted
// resources. A nil prior degrades to ModeIgnore.
func ResolveConfig(prior *session.Record, mode Mode, p Prompter) (*session.Record, error) {
	if prior == nil {
		if mode != ModeIgnore {
			message.Warning("No usable previous configuration, all values will be collected fresh")
		}
		return &session.Record{}, nil
	}

	switch mode {
	case ModeUseAll:
		rec := *prior
		return &rec, nil
	case ModeIgnore:
		return &session.Record{}, nil
	case ModeOverride:
		rec := *prior
		for _, field := range overrideFields {
			answer, err := p.Input(fmt.Sprintf("%s (blank keeps current)", field.label), field.get(&rec))
			if err != nil {
				return nil, err
			}
			if answer != field.get(&rec) {
				field.set(&rec, answer)
			}
		}
		// The template choice is never offered as a keepable default: it is
		// re-derived from the current template directory listing.
		rec.TemplatePath = ""
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown resolve mode %q", mode)
	}
}
