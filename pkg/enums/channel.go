package enums

import "fmt"

// Channel maps to the channel enum in Postgres. InApp is the notifications
// row itself; push and email are side channels with their own senders.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

var validChannels = []Channel{
	ChannelPush,
	ChannelEmail,
	ChannelInApp,
}

// IsValid checks whether the value matches the canonical enum.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}

// SideChannels lists the channels that go through external senders.
func SideChannels() []Channel {
	return []Channel{ChannelPush, ChannelEmail}
}

// DeliveryOutcome maps to the delivery_outcome enum in Postgres.
type DeliveryOutcome string

const (
	DeliveryOutcomeDelivered DeliveryOutcome = "delivered"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
	DeliveryOutcomeSkipped   DeliveryOutcome = "skipped"
)

// IsValid checks whether the value matches the canonical enum.
func (o DeliveryOutcome) IsValid() bool {
	return o == DeliveryOutcomeDelivered || o == DeliveryOutcomeFailed || o == DeliveryOutcomeSkipped
}
