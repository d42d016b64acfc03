package domain

// ActorKind distinguishes the two caller roles.
type ActorKind string

const (
	ActorConsumer ActorKind = "consumer"
	ActorSeller   ActorKind = "seller"
)

// Actor identifies the caller of an operation. Authorization checks compare
// the actor against entity ownership, never an ambient security context.
type Actor struct {
	Kind ActorKind
	ID   string
}

// ConsumerActor returns an actor for the given consumer id.
func ConsumerActor(id string) Actor {
	return Actor{Kind: ActorConsumer, ID: id}
}

// SellerActor returns an actor for the given seller id.
func SellerActor(id string) Actor {
	return Actor{Kind: ActorSeller, ID: id}
}

// IsConsumer reports whether the actor is the consumer with the given id.
func (a Actor) IsConsumer(consumerID string) bool {
	return a.Kind == ActorConsumer && a.ID == consumerID
}

// IsSeller reports whether the actor is the seller with the given id.
func (a Actor) IsSeller(sellerID string) bool {
	return a.Kind == ActorSeller && a.ID == sellerID
}
