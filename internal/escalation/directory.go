package escalation

import "github.com/geowarn/geowarn/internal/alert"

// Directory maps escalation levels to their ordered contact lists. Like
// the policy registry it is built once and then read-only.
type Directory struct {
	contacts map[Level][]alert.Contact
}

// NewDirectory creates a directory from per-level contact lists.
func NewDirectory(contacts map[Level][]alert.Contact) *Directory {
	if contacts == nil {
		contacts = make(map[Level][]alert.Contact)
	}
	return &Directory{contacts: contacts}
}

// DefaultDirectory returns the built-in contact chain: site operators,
// then site supervision, then regional management, then emergency
// contacts.
func DefaultDirectory() *Directory {
	return NewDirectory(map[Level][]alert.Contact{
		Level1: {
			{Name: "Site Operator 1", Role: "Site Operator", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "operator1@mining-site.example",
				alert.ChannelSMS:   "+1234567890",
			}},
			{Name: "Site Operator 2", Role: "Site Operator", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "operator2@mining-site.example",
				alert.ChannelSMS:   "+1234567891",
			}},
		},
		Level2: {
			{Name: "Site Supervisor", Role: "Site Supervisor", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "supervisor@mining-site.example",
				alert.ChannelSMS:   "+1234567892",
			}},
			{Name: "Safety Manager", Role: "Safety Manager", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "safety@mining-site.example",
				alert.ChannelSMS:   "+1234567893",
			}},
		},
		Level3: {
			{Name: "Regional Manager", Role: "Regional Manager", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "regional@mining-company.example",
				alert.ChannelSMS:   "+1234567894",
			}},
			{Name: "Operations Director", Role: "Operations Director", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "operations@mining-company.example",
				alert.ChannelSMS:   "+1234567895",
			}},
		},
		Level4: {
			{Name: "Emergency Services", Role: "Emergency Response", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "emergency@local-gov.example",
				alert.ChannelSMS:   "+911",
			}},
			{Name: "CEO", Role: "Chief Executive Officer", Addresses: map[alert.Channel]string{
				alert.ChannelEmail: "ceo@mining-company.example",
				alert.ChannelSMS:   "+1234567896",
			}},
		},
	})
}

// ContactsFor returns the contacts at a level, in their configured order.
func (d *Directory) ContactsFor(level Level) []alert.Contact {
	return d.contacts[level]
}
