package domain

import (
	"strings"
	"time"
)

// AgeRange is the respondent's age bracket.
type AgeRange string

const (
	AgeUnder20 AgeRange = "under_20"
	Age20s     AgeRange = "20s"
	Age30s     AgeRange = "30s"
	Age40s     AgeRange = "40s"
	Age50s     AgeRange = "50s"
	Age60Plus  AgeRange = "60_plus"
)

// Gender is the respondent's self-reported gender.
type Gender string

const (
	GenderMale     Gender = "male"
	GenderFemale   Gender = "female"
	GenderOther    Gender = "other"
	GenderNoAnswer Gender = "no_answer"
)

// DiscoveryChannel is a way the respondent heard about the brand.
type DiscoveryChannel string

const (
	ChannelInstagram DiscoveryChannel = "instagram"
	ChannelX         DiscoveryChannel = "x"
	ChannelTikTok    DiscoveryChannel = "tiktok"
	ChannelYouTube   DiscoveryChannel = "youtube"
	ChannelLine      DiscoveryChannel = "line"
	ChannelSearch    DiscoveryChannel = "search"
	ChannelFriend    DiscoveryChannel = "friend"
	ChannelStore     DiscoveryChannel = "store"
	ChannelOther     DiscoveryChannel = "other"
)

// PriceRange is how much the respondent usually spends per purchase, in yen.
type PriceRange string

const (
	PriceUnder1000  PriceRange = "under_1000"
	Price1000To2999 PriceRange = "1000_2999"
	Price3000To4999 PriceRange = "3000_4999"
	Price5000To9999 PriceRange = "5000_9999"
	Price10000Plus  PriceRange = "10000_plus"
)

// Free-text limits, counted in characters.
const (
	MaxDiscoveryOtherLength = 200
	MaxBrandNameLength      = 100
)

var (
	validAgeRanges = map[AgeRange]bool{
		AgeUnder20: true, Age20s: true, Age30s: true, Age40s: true, Age50s: true, Age60Plus: true,
	}
	validGenders = map[Gender]bool{
		GenderMale: true, GenderFemale: true, GenderOther: true, GenderNoAnswer: true,
	}
	validChannels = map[DiscoveryChannel]bool{
		ChannelInstagram: true, ChannelX: true, ChannelTikTok: true, ChannelYouTube: true,
		ChannelLine: true, ChannelSearch: true, ChannelFriend: true, ChannelStore: true, ChannelOther: true,
	}
	validPriceRanges = map[PriceRange]bool{
		PriceUnder1000: true, Price1000To2999: true, Price3000To4999: true, Price5000To9999: true, Price10000Plus: true,
	}
)

// Valid reports whether a is a known age bracket.
func (a AgeRange) Valid() bool { return validAgeRanges[a] }

// Valid reports whether g is a known gender option.
func (g Gender) Valid() bool { return validGenders[g] }

// Valid reports whether c is a known discovery channel.
func (c DiscoveryChannel) Valid() bool { return validChannels[c] }

// Valid reports whether p is a known price bracket.
func (p PriceRange) Valid() bool { return validPriceRanges[p] }

// Answers is the payload collected by the five-step form.
type Answers struct {
	AgeRange          AgeRange           `json:"age_range" bson:"ageRange"`
	Gender            Gender             `json:"gender" bson:"gender"`
	DiscoveryChannels []DiscoveryChannel `json:"discovery_channels" bson:"discoveryChannels"`
	DiscoveryOther    string             `json:"discovery_other,omitempty" bson:"discoveryOther,omitempty"`
	PriceRange        PriceRange         `json:"price_range" bson:"priceRange"`
	BrandName         string             `json:"brand_name" bson:"brandName"`
}

// HasChannel reports whether c was selected.
func (a *Answers) HasChannel(c DiscoveryChannel) bool {
	for _, selected := range a.DiscoveryChannels {
		if selected == c {
			return true
		}
	}
	return false
}

// Normalize trims free-text answers in place.
func (a *Answers) Normalize() {
	a.BrandName = strings.TrimSpace(a.BrandName)
	a.DiscoveryOther = strings.TrimSpace(a.DiscoveryOther)
}

// SurveyRecord is the stored submission of one LINE user.
type SurveyRecord struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Answers            Answers    `json:"answers"`
	CouponCode         string     `json:"coupon_code"`
	NotificationSentAt *time.Time `json:"notification_sent_at,omitempty"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// SubmitResult is returned by a submission, new or repeated.
type SubmitResult struct {
	CouponCode string `json:"coupon_code"`
	Created    bool   `json:"created"`
}

// SubmissionStatus answers "has this user already submitted?".
type SubmissionStatus struct {
	AlreadySubmitted bool       `json:"already_submitted"`
	CouponCode       string     `json:"coupon_code,omitempty"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
}

// CouponInfo describes a coupon code without revealing who holds it.
type CouponInfo struct {
	Code             string     `json:"code"`
	Valid            bool       `json:"valid"`
	Issued           bool       `json:"issued"`
	IssuedAt         *time.Time `json:"issued_at,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
}
