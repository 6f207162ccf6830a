package transfer

type PostCreation struct {
	Content     string   `validate:"required,max=5000"`
	Platforms   []string `validate:"required,min=1,dive,oneof=twitter facebook instagram linkedin tiktok snapchat youtube"`
	ScheduledAt string   `validate:"omitempty"`
}
