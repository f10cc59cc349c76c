package models

const (
	StatusAtHub     = "AT_HUB"
	StatusEnRoute   = "EN_ROUTE"
	StatusDelivered = "DELIVERED"

	TruckStateLoading    = "LOADING"
	TruckStateDispatched = "DISPATCHED"
	TruckStateReturned   = "RETURNED"
)

const (
	DefaultSpeedMPH      = 18.0
	DefaultTruckCapacity = 16
	DefaultTruckCount    = 3
	DefaultDriverCount   = 2
	DefaultTwoOptLimit   = 32
	DefaultStoreBuckets  = 16
)
