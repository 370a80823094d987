package domain

// Role is the part a participant plays in a trade.
type Role int

const (
	RoleBuyer Role = iota
	RoleSeller
	RoleArbitrator
)

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "BUYER"
	case RoleSeller:
		return "SELLER"
	case RoleArbitrator:
		return "ARBITRATOR"
	default:
		return "UNKNOWN"
	}
}

// SellerProfilePubKey returns the profile key of the party selling bitcoin:
// the maker of a SELL offer, the taker of a BUY offer.
func (t *Trade) SellerProfilePubKey() string {
	if t.Offer.Type == OfferTypeSell {
		return t.Offer.MakerProfilePubKey
	}
	return t.TradeRequest.TakerProfilePubKey
}

// BuyerProfilePubKey returns the profile key of the party buying bitcoin.
func (t *Trade) BuyerProfilePubKey() string {
	if t.Offer.Type == OfferTypeBuy {
		return t.Offer.MakerProfilePubKey
	}
	return t.TradeRequest.TakerProfilePubKey
}

// ArbitratorProfilePubKey returns the profile key of the arbitrator bound by
// the acceptance, or an empty string if the trade was never accepted.
func (t *Trade) ArbitratorProfilePubKey() string {
	if t.TradeAcceptance == nil {
		return ""
	}
	return t.TradeAcceptance.ArbitratorProfilePubKey
}

// RoleOf resolves the role the owner of the given profile key plays in the
// trade. It fails with ErrUnknownRole if the key matches no participant,
// which should be unreachable for a correctly-routed trade.
func (t *Trade) RoleOf(profilePubKey string) (Role, error) {
	switch profilePubKey {
	case "":
		return 0, ErrUnknownRole
	case t.SellerProfilePubKey():
		return RoleSeller, nil
	case t.BuyerProfilePubKey():
		return RoleBuyer, nil
	case t.ArbitratorProfilePubKey():
		return RoleArbitrator, nil
	default:
		return 0, ErrUnknownRole
	}
}
