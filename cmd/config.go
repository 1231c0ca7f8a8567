package cmd

import "time"

type Config struct {
	HTTPPort          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSslMode         string
	NatsURL           string
	FinanceBaseURL    string
	EntityPercent     int
	KeyedStorePercent int
	DurablePercent    int
	RecoveryWindow    time.Duration
	ServiceFeeRate    float64
	LoyaltyDiscount   float64
}
