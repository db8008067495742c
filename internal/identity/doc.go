// Package identity maps source rows to the entities they describe and
// splits a batch into independent partitions, one per entity.
//
// Each source row is matched by its stable key, by its natural keys, or by
// both, depending on the configured strategy. Rows that describe the same
// not-yet-existing entity are grouped through shared natural-key values and
// shared founding ids. Rows that cannot be identified, or that match more
// than one existing entity, are rejected with an ERROR action and never
// reach a partition.
//
// Partition keys take two forms:
//
//	existing:<stable key values>   an entity already in the target
//	new:<group>                    an entity the batch introduces
//
// where group is key/<explicit stable key>, nk/<natural key> or
// found/<founding id>, in that precedence.
package identity
