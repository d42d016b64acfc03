package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsumerActor(t *testing.T) {
	actor := ConsumerActor("consumer-1")

	assert.Equal(t, ActorConsumer, actor.Kind)
	assert.True(t, actor.IsConsumer("consumer-1"))
	assert.False(t, actor.IsConsumer("consumer-2"))
	assert.False(t, actor.IsSeller("consumer-1"))
}

func TestSellerActor(t *testing.T) {
	actor := SellerActor("seller-1")

	assert.Equal(t, ActorSeller, actor.Kind)
	assert.True(t, actor.IsSeller("seller-1"))
	assert.False(t, actor.IsSeller("seller-2"))
	assert.False(t, actor.IsConsumer("seller-1"))
}

// The actor constructors live beside the Consumer and Seller entities; this
// pins the distinct names so the package keeps compiling as both evolve.
func TestActorNamesDoNotShadowEntities(t *testing.T) {
	var c Consumer
	var s Seller

	assert.IsType(t, Consumer{}, c)
	assert.IsType(t, Seller{}, s)
	assert.IsType(t, Actor{}, ConsumerActor("x"))
	assert.IsType(t, Actor{}, SellerActor("x"))
}
