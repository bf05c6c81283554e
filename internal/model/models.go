package model

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Property{},
		&PropertyImage{},
		&Lead{},
		&Interaction{},
		&MessageBuffer{},
		&AIContext{},
		&ClientInterest{},
		&WebhookLog{},
		&Owner{},
		&Review{},
		&CampaignSource{},
		&AnalyticsEvent{},
		&FinancialTransaction{},
		&Commission{},
	}
}
