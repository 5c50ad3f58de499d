package model

// CodePrefix is the prefix of every registry-minted commodity code.
const CodePrefix = "VAAR"

// UnclassifiedGroupID is the group assigned to commodities minted at
// normalization time, before an operator classifies them.
const UnclassifiedGroupID = 99

// Identity is one durable commodity identity in the registry. Once minted,
// Code never changes and is never reused for a different name.
//
// JSON tags match the upstream metadata snapshot format so registry files
// round-trip against what the commodity API serves.
type Identity struct {
	NumericID int    `json:"cmdt_id"`
	Name      string `json:"cmdt_name"`
	GroupID   int    `json:"cmdt_group_id"`
	Code      string `json:"uuiq"`
}

// Group is one commodity group definition from the metadata snapshot.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"cmdt_grp_name"`
}
