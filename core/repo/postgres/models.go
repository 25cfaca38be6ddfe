// Package postgres implements the persistent repository adapters (C16)
// backed by gorm + the postgres driver, the durable tier every in-memory
// adapter in core/repo/memory has a one-to-one counterpart for.
package postgres

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to dsn and runs AutoMigrate for every model this package
// owns.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&agentModel{}, &walletModel{}, &policyModel{}, &holdModel{},
		&webhookSubscriptionModel{}, &webhookAttemptModel{},
		&escrowModel{}, &settlementModel{}, &ledgerEntryModel{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

type agentModel struct {
	AgentID        string `gorm:"primaryKey"`
	OrganizationID string `gorm:"index"`
	Domain         string
	KYALevel       string
	IsActive       bool
}

func (agentModel) TableName() string { return "agents" }

type walletModel struct {
	WalletID        string `gorm:"primaryKey"`
	AgentID         string `gorm:"index"`
	AccountType     string
	AddressesJSON   string
	LimitPerTxMinor int64
	LimitTotalMinor int64
	IsActive        bool
	IsFrozen        bool
	FrozenAt        *time.Time
	FrozenBy        string
	FrozenReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (walletModel) TableName() string { return "wallets" }

type policyModel struct {
	AgentID  string `gorm:"primaryKey"`
	PolicyID string
	DataJSON string
}

func (policyModel) TableName() string { return "spending_policies" }

type holdModel struct {
	HoldID              string `gorm:"primaryKey"`
	WalletID            string `gorm:"index"`
	AmountMinor         int64
	Chain               string
	Token               string
	State               string
	CreatedAt           time.Time
	ExpiresAt           time.Time
	CapturedAmountMinor int64
	CaptureTxID         string
}

func (holdModel) TableName() string { return "holds" }

type webhookSubscriptionModel struct {
	SubscriptionID string `gorm:"primaryKey"`
	OrganizationID string `gorm:"index"`
	URL            string
	EventsJSON     string
	Secret         string
	IsActive       bool
	TotalAttempts  int64
	SuccessCount   int64
	FailCount      int64
	LastDeliveryAt *time.Time
}

func (webhookSubscriptionModel) TableName() string { return "webhook_subscriptions" }

type webhookAttemptModel struct {
	AttemptID      string `gorm:"primaryKey"`
	SubscriptionID string `gorm:"index"`
	EventID        string `gorm:"index"`
	EventType      string
	URL            string
	StatusCode     int
	ResponseBody   string
	Err            string
	DurationMS     int64
	Success        bool
	AttemptNumber  int
	CreatedAt      time.Time
}

func (webhookAttemptModel) TableName() string { return "webhook_deliveries" }

type escrowModel struct {
	EscrowID          string `gorm:"primaryKey"`
	Payer             string
	Payee             string
	Chain             string
	Token             string
	AmountMinor       string
	Status            uint8
	CreatedAt         int64
	ExpiresAt         int64
	FundedTxHash      string
	DeliveryProofHash string
	DisputeReason     string
}

func (escrowModel) TableName() string { return "escrows" }

type settlementModel struct {
	SettlementID string `gorm:"primaryKey"`
	EscrowID     string `gorm:"index"`
	Type         string
	Chain        string
	Token        string
	AmountMinor  int64
	TxHash       string
	LedgerTxID   string
	ExplorerURL  string
	AuditHash    string
	SettledAt    time.Time
}

func (settlementModel) TableName() string { return "settlements" }

type ledgerEntryModel struct {
	EntryID      string `gorm:"primaryKey"`
	TxID         string `gorm:"index"`
	AccountID    string `gorm:"index"`
	EntryType    string
	AmountMinor  int64
	Currency     string
	Chain        string
	ChainTxHash  string
	MetadataJSON string
	Status       string
	CreatedAt    time.Time
}

func (ledgerEntryModel) TableName() string { return "ledger_entries_v2" }
