// Package consignment reads and writes the transfer packages a stash
// imports and exports.
//
// A consignment lists nodes with their owned rights. Each owned state is
// encoded with the facets its disclosure level reveals:
//
//	{"seal": {...}, "amount": {...}}           revealed
//	{"concealed_seal": "..", "data": ".."}     seal hidden
//	{"seal": {...}, "concealed_state": ".."}   payload hidden
//	{"concealed_seal": "..", "concealed_state": ".."}
//
// JSON and YAML files carry the same document. Node ids are checked on
// decode, and a node repeated within one file is reveal-merged with itself.
package consignment
