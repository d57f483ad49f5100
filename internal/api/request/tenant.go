package request

type CreateTenant struct {
	Name           string `json:"name" validate:"required,min=1,max=128"`
	StorageQuotaGB *int   `json:"storage_quota_gb" validate:"omitempty,min=1"`
}

type UpdateTenantStatus struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended rejected"`
}

type UpdateTenantQuota struct {
	StorageQuotaGB int `json:"storage_quota_gb" validate:"required,min=1"`
}
