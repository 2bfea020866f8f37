package storefront

import (
	"fmt"
	"time"

	"drop-storefront/internal/domain"
)

// Phase is the controller's position in the page lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseLoading       Phase = "loading"
	PhaseReady         Phase = "ready"
	PhaseMinting       Phase = "minting"
	PhaseMintSucceeded Phase = "mint_succeeded" // outcome being handled
	PhaseMintFailed    Phase = "mint_failed"    // outcome being handled
)

// MintOutcome is the result of the most recent mint on a page.
type MintOutcome string

const (
	MintSucceeded MintOutcome = "succeeded"
	MintFailed    MintOutcome = "failed"
)

// Notification texts.
const (
	MsgMinting = "Minting..."
	MsgSuccess = "Hurray, You successfully minted."
	MsgFailure = "Whoops, Something went wrong :("
)

// ToastDuration is how long success and failure notifications stay visible.
const ToastDuration = 8 * time.Second

// NotificationKind selects the notification style.
type NotificationKind string

const (
	NotifyLoading NotificationKind = "loading"
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a toast shown on the page.
// A zero Duration means it stays until dismissed.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Duration  time.Duration    `json:"duration_ms"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n Notification) expired(now time.Time) bool {
	return n.Duration > 0 && now.Sub(n.CreatedAt) >= n.Duration
}

// ClaimState is the mutable state behind one storefront page.
// Claimed and Total are only meaningful together once both loads complete;
// Loading masks any partial pair.
type ClaimState struct {
	Claimed       int64
	Total         *int64 // nil until loaded
	Price         string // display price, empty until loaded
	Currency      string
	Loading       bool
	Address       *string
	Minted        *domain.NFTMetadata
	ModalOpen     bool
	LastMint      MintOutcome // empty until a mint settles
	Notifications []Notification
}

// View is the derived presentation of a ClaimState.
type View struct {
	Phase          Phase               `json:"phase"`
	LastMint       MintOutcome         `json:"last_mint,omitempty"`
	Loading        bool                `json:"loading"`
	Claimed        int64               `json:"claimed"`
	Total          *int64              `json:"total"`
	Price          string              `json:"price"`
	Currency       string              `json:"currency"`
	SupplyText     string              `json:"supply_text,omitempty"`
	ButtonLabel    string              `json:"button_label"`
	ButtonDisabled bool                `json:"button_disabled"`
	Address        string              `json:"address,omitempty"`
	ShortAddress   string              `json:"short_address,omitempty"`
	ModalOpen      bool                `json:"modal_open"`
	Minted         *domain.NFTMetadata `json:"minted,omitempty"`
	Notifications  []Notification      `json:"notifications"`
}

// Connected reports whether a wallet address is bound.
func (v View) Connected() bool {
	return v.Address != ""
}

// soldOut compares claimed against total. An unknown total never matches.
func (s *ClaimState) soldOut() bool {
	return s.Total != nil && s.Claimed == *s.Total
}

// derive computes the view at now. Expired notifications are left out.
func (s *ClaimState) derive(phase Phase, now time.Time) View {
	v := View{
		Phase:     phase,
		LastMint:  s.LastMint,
		Loading:   s.Loading,
		Claimed:   s.Claimed,
		Price:     s.Price,
		Currency:  s.Currency,
		ModalOpen: s.ModalOpen,
	}
	if s.Total != nil {
		total := *s.Total
		v.Total = &total
	}
	if s.Address != nil {
		v.Address = *s.Address
		v.ShortAddress = ShortenAddress(*s.Address)
	}
	if s.Minted != nil {
		m := *s.Minted
		v.Minted = &m
	}
	v.Notifications = make([]Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		if !n.expired(now) {
			v.Notifications = append(v.Notifications, n)
		}
	}

	v.ButtonLabel, v.ButtonDisabled = buttonState(s)
	if !s.Loading && s.Total != nil {
		v.SupplyText = fmt.Sprintf("%d/%d NFT's owned.", s.Claimed, *s.Total)
	}
	return v
}

// buttonState applies the mint control rules in priority order.
func buttonState(s *ClaimState) (string, bool) {
	disabled := s.Loading || s.soldOut() || s.Address == nil
	switch {
	case s.Loading:
		return "Loading...", disabled
	case s.soldOut():
		return "Sold Out", disabled
	case s.Address == nil:
		return "Sign in to Mint", disabled
	default:
		currency := s.Currency
		if currency == "" {
			currency = "SOL"
		}
		return fmt.Sprintf("Mint NFT (%s %s)", s.Price, currency), disabled
	}
}

// ShortenAddress renders the first and last five characters of an address.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:5] + "..." + addr[len(addr)-5:]
}
