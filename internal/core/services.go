package core

type Services struct {
	Tenant       *TenantService
	Bucket       *BucketService
	UsageRecord  *UsageRecordService
	Invoice      *InvoiceService
	Notification *NotificationService
	APIKey       *APIKeyService
}

func NewServices(db DB) *Services {
	return &Services{
		Tenant:       NewTenantService(db),
		Bucket:       NewBucketService(db),
		UsageRecord:  NewUsageRecordService(db),
		Invoice:      NewInvoiceService(db),
		Notification: NewNotificationService(db),
		APIKey:       NewAPIKeyService(db),
	}
}
