package model

// Venue represents a training location (a gym or studio) as stored in
// the `venues` table.  Sessions reference a venue; subscriptions may
// optionally be scoped to one.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name of the venue.
//  Address      – street address.
//  MetroStation – nearest metro station.
//  District     – city district.
//  Description  – free-form description.
//  Level        – minimum training level the venue caters to.
type Venue struct {
	ID           uint64 // venues.id
	Name         string // venues.name
	Address      string // venues.address
	MetroStation string // venues.metro_station
	District     string // venues.district
	Description  string // venues.description
	Level        int    // venues.level
}
