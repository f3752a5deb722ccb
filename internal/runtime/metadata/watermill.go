package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// FromWatermill converts Watermill message metadata into pipeline Metadata.
func FromWatermill(md message.Metadata) Metadata {
	if md == nil {
		return Metadata{}
	}

	converted := make(Metadata, len(md))
	for k, v := range md {
		converted[k] = v
	}
	return converted
}

// ToWatermill converts pipeline Metadata into Watermill message metadata.
func ToWatermill(md Metadata) message.Metadata {
	converted := make(message.Metadata, len(md))
	for k, v := range md {
		converted[k] = v
	}
	return converted
}
