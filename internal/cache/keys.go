package cache

const voucherPrefix = "voucher:"

// KeyVoucher returns the cache key of a single voucher.
func KeyVoucher(id string) string {
	return voucherPrefix + "id:" + id
}
