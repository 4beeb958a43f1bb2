package client

import "strconv"

// blockKey computes the store key K ∥ decimal-ASCII(i) for block index i of
// object key K (§6). K must not end in a digit; this is an operator contract
// that neither blockKey nor configuration validation checks.
func blockKey(key string, index int) string {
	return key + strconv.Itoa(index)
}
