package generators

// DefaultSeedBase is the base both the write and the read path pass to
// DeriveColumnSeed.
const DefaultSeedBase int64 = 0

// DeriveColumnSeed folds the partition key into base with the polynomial
// rollup seed = 31*seed + b, treating every byte as signed and letting the
// arithmetic wrap. It is pure: the read path recomputes the exact seed the
// write path used from nothing but the key.
func DeriveColumnSeed(base int64, partitionKey []byte) int64 {
	seed := base
	for _, b := range partitionKey {
		seed = 31*seed + int64(int8(b))
	}
	return seed
}
