package events

// Topic constants for voucher lifecycle events.
const (
	TopicVoucherCreated     = "voucher.created"
	TopicVoucherUpdated     = "voucher.updated"
	TopicVoucherDeleted     = "voucher.deleted"
	TopicVoucherDeactivated = "voucher.deactivated"
)

// DefaultTopics returns every topic the service emits.
func DefaultTopics() []string {
	return []string{
		TopicVoucherCreated,
		TopicVoucherUpdated,
		TopicVoucherDeleted,
		TopicVoucherDeactivated,
	}
}
