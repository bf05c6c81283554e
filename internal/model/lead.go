package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LeadSource string

const (
	SourceSite           LeadSource = "site"
	SourceWhatsApp       LeadSource = "whatsapp"
	SourceInstagram      LeadSource = "instagram"
	SourceFacebook       LeadSource = "facebook"
	SourceIndicacao      LeadSource = "indicacao"
	SourcePortalZap      LeadSource = "portal_zap"
	SourcePortalVivaReal LeadSource = "portal_vivareal"
	SourcePortalOLX      LeadSource = "portal_olx"
	SourceGoogle         LeadSource = "google"
	SourceOutro          LeadSource = "outro"
)

type ClientType string

const (
	ClientComprador    ClientType = "comprador"
	ClientLocatario    ClientType = "locatario"
	ClientProprietario ClientType = "proprietario"
)

// Qualification is the lead temperature. It is independent of Stage.
type Qualification string

const (
	QualificationQuente         Qualification = "quente"
	QualificationMorno          Qualification = "morno"
	QualificationFrio           Qualification = "frio"
	QualificationNaoQualificado Qualification = "nao_qualificado"
)

type BuyerProfile string

const (
	BuyerInvestidor   BuyerProfile = "investidor"
	BuyerPrimeiraCasa BuyerProfile = "primeira_casa"
	BuyerUpgrade      BuyerProfile = "upgrade"
	BuyerCurioso      BuyerProfile = "curioso"
	BuyerIndeciso     BuyerProfile = "indeciso"
)

// Level is shared by urgency and priority.
type Level string

const (
	LevelBaixa   Level = "baixa"
	LevelMedia   Level = "media"
	LevelAlta    Level = "alta"
	LevelUrgente Level = "urgente"
)

type Lead struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"size:320"`
	Phone    string `json:"phone" gorm:"size:20;index"`
	WhatsApp string `json:"whatsapp" gorm:"column:whatsapp;size:20"`

	Source        LeadSource    `json:"source" gorm:"size:30;not null;index"`
	Stage         Stage         `json:"stage" gorm:"size:30;not null;index"`
	ClientType    ClientType    `json:"client_type" gorm:"size:20;not null"`
	Qualification Qualification `json:"qualification" gorm:"size:20;not null;index"`
	BuyerProfile  *BuyerProfile `json:"buyer_profile" gorm:"size:20"`
	UrgencyLevel  Level         `json:"urgency_level" gorm:"size:10;not null"`

	InterestedPropertyID *uint           `json:"interested_property_id"`
	TransactionInterest  TransactionType `json:"transaction_interest" gorm:"size:20"`
	BudgetMin            *int64          `json:"budget_min"`
	BudgetMax            *int64          `json:"budget_max"`

	PreferredNeighborhoods datatypes.JSONSlice[string] `json:"preferred_neighborhoods"`
	PreferredPropertyTypes datatypes.JSONSlice[string] `json:"preferred_property_types"`
	Tags                   datatypes.JSONSlice[string] `json:"tags"`

	Notes      string `json:"notes" gorm:"type:text"`
	AssignedTo *uint  `json:"assigned_to" gorm:"index"`
	Score      int    `json:"score" gorm:"default:0"`
	Priority   Level  `json:"priority" gorm:"size:10;not null"`

	LastContactedAt *time.Time `json:"last_contacted_at"`
	ConvertedAt     *time.Time `json:"converted_at"`

	InterestedProperty *Property `json:"interested_property,omitempty" gorm:"foreignKey:InterestedPropertyID;constraint:OnDelete:SET NULL"`
}

// BeforeCreate applies the defaults every new lead starts with.
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.Stage == "" {
		l.Stage = StageNovo
	}
	if l.Source == "" {
		l.Source = SourceSite
	}
	if l.ClientType == "" {
		l.ClientType = ClientComprador
	}
	if l.Qualification == "" {
		l.Qualification = QualificationNaoQualificado
	}
	if l.UrgencyLevel == "" {
		l.UrgencyLevel = LevelMedia
	}
	if l.Priority == "" {
		l.Priority = LevelMedia
	}
	return nil
}

func (s LeadSource) Valid() bool {
	switch s {
	case SourceSite, SourceWhatsApp, SourceInstagram, SourceFacebook, SourceIndicacao,
		SourcePortalZap, SourcePortalVivaReal, SourcePortalOLX, SourceGoogle, SourceOutro:
		return true
	}
	return false
}

func (q Qualification) Valid() bool {
	switch q {
	case QualificationQuente, QualificationMorno, QualificationFrio, QualificationNaoQualificado:
		return true
	}
	return false
}

func (b BuyerProfile) Valid() bool {
	switch b {
	case BuyerInvestidor, BuyerPrimeiraCasa, BuyerUpgrade, BuyerCurioso, BuyerIndeciso:
		return true
	}
	return false
}

func (l Level) Valid() bool {
	switch l {
	case LevelBaixa, LevelMedia, LevelAlta, LevelUrgente:
		return true
	}
	return false
}

func (c ClientType) Valid() bool {
	switch c {
	case ClientComprador, ClientLocatario, ClientProprietario:
		return true
	}
	return false
}
