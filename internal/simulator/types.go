package simulator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go/schema"

	"fleetsim/internal/models"
)

// Topics for the event stream, one per event kind.
const (
	TopicTruckDeparted    = "truck_departed_events"
	TopicTruckReturned    = "truck_returned_events"
	TopicPackageDelivered = "package_delivered_events"
	TopicAddressCorrected = "address_corrected_events"
)

// TruckDeparture is the payload of a TruckDeparted event.
type TruckDeparture struct {
	TruckID  int
	At       time.Time
	Packages int
}

// TruckReturn is the payload of a TruckReturned event.
type TruckReturn struct {
	TruckID int
	At      time.Time
	Miles   float64
}

// PackageDelivery is the payload of a PackageDelivered event.
type PackageDelivery struct {
	PackageID int
	TruckID   int
	Location  string
	At        time.Time
	Late      bool
}

// AddressCorrection is the payload of an AddressCorrected event.
type AddressCorrection struct {
	PackageID  int
	OldAddress string
	NewAddress string
	At         time.Time
}

// BaseEvent is the common structure for all serialized events
type BaseEvent struct {
	Timestamp int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID     string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// TruckDepartedEvent represents a truck leaving the hub
type TruckDepartedEvent struct {
	BaseEvent
	TruckID      int32 `json:"truckId" parquet:"name=truckId,type=INT32"`
	PackageCount int32 `json:"packageCount" parquet:"name=packageCount,type=INT32"`
	DepartedAt   int64 `json:"departedAt" parquet:"name=departedAt,type=INT64"`
}

// TruckReturnedEvent represents a truck arriving back at the hub
type TruckReturnedEvent struct {
	BaseEvent
	TruckID    int32   `json:"truckId" parquet:"name=truckId,type=INT32"`
	ReturnedAt int64   `json:"returnedAt" parquet:"name=returnedAt,type=INT64"`
	Miles      float64 `json:"miles" parquet:"name=miles,type=DOUBLE"`
}

// PackageDeliveredEvent represents a package being delivered
type PackageDeliveredEvent struct {
	BaseEvent
	PackageID   int32  `json:"packageId" parquet:"name=packageId,type=INT32"`
	TruckID     int32  `json:"truckId" parquet:"name=truckId,type=INT32"`
	Location    string `json:"location" parquet:"name=location,type=BYTE_ARRAY,convertedtype=UTF8"`
	DeliveredAt int64  `json:"deliveredAt" parquet:"name=deliveredAt,type=INT64"`
	Late        bool   `json:"late" parquet:"name=late,type=BOOLEAN"`
}

// AddressCorrectedEvent represents a wrong address being fixed mid-day
type AddressCorrectedEvent struct {
	BaseEvent
	PackageID   int32  `json:"packageId" parquet:"name=packageId,type=INT32"`
	OldAddress  string `json:"oldAddress" parquet:"name=oldAddress,type=BYTE_ARRAY,convertedtype=UTF8"`
	NewAddress  string `json:"newAddress" parquet:"name=newAddress,type=BYTE_ARRAY,convertedtype=UTF8"`
	CorrectedAt int64  `json:"correctedAt" parquet:"name=correctedAt,type=INT64"`
}

func GetSchema(topic string) (*schema.SchemaHandler, error) {
	var sh *schema.SchemaHandler
	var err error

	switch topic {
	case TopicTruckDeparted:
		sh, err = schema.NewSchemaHandlerFromStruct(new(TruckDepartedEvent))
	case TopicTruckReturned:
		sh, err = schema.NewSchemaHandlerFromStruct(new(TruckReturnedEvent))
	case TopicPackageDelivered:
		sh, err = schema.NewSchemaHandlerFromStruct(new(PackageDeliveredEvent))
	case TopicAddressCorrected:
		sh, err = schema.NewSchemaHandlerFromStruct(new(AddressCorrectedEvent))
	default:
		return nil, fmt.Errorf("unknown topic: %s", topic)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating schema for %s: %w", topic, err)
	}
	return sh, nil
}

func NewBaseEvent(eventType, runID string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		Timestamp: timestamp.Unix(),
		EventType: eventType,
		RunID:     runID,
	}
}

// serializeEvent flattens a simulation event into its wire form for an
// output destination.
func (s *Simulator) serializeEvent(event *models.Event) (models.EventMessage, error) {
	var topic string
	var record interface{}

	switch data := event.Data.(type) {
	case *TruckDeparture:
		topic = TopicTruckDeparted
		record = &TruckDepartedEvent{
			BaseEvent:    NewBaseEvent(event.Type, s.RunID, event.Time),
			TruckID:      int32(data.TruckID),
			PackageCount: int32(data.Packages),
			DepartedAt:   data.At.Unix(),
		}
	case *TruckReturn:
		topic = TopicTruckReturned
		record = &TruckReturnedEvent{
			BaseEvent:  NewBaseEvent(event.Type, s.RunID, event.Time),
			TruckID:    int32(data.TruckID),
			ReturnedAt: data.At.Unix(),
			Miles:      data.Miles,
		}
	case *PackageDelivery:
		topic = TopicPackageDelivered
		record = &PackageDeliveredEvent{
			BaseEvent:   NewBaseEvent(event.Type, s.RunID, event.Time),
			PackageID:   int32(data.PackageID),
			TruckID:     int32(data.TruckID),
			Location:    data.Location,
			DeliveredAt: data.At.Unix(),
			Late:        data.Late,
		}
	case *AddressCorrection:
		topic = TopicAddressCorrected
		record = &AddressCorrectedEvent{
			BaseEvent:   NewBaseEvent(event.Type, s.RunID, event.Time),
			PackageID:   int32(data.PackageID),
			OldAddress:  data.OldAddress,
			NewAddress:  data.NewAddress,
			CorrectedAt: data.At.Unix(),
		}
	default:
		return models.EventMessage{}, fmt.Errorf("unknown event payload %T", event.Data)
	}

	msg, err := json.Marshal(record)
	if err != nil {
		return models.EventMessage{}, fmt.Errorf("failed to serialize %s event: %w", event.Type, err)
	}
	return models.EventMessage{Topic: topic, Message: msg}, nil
}
