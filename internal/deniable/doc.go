// Package deniable implements the deniable channel: a secondary
// crypto_box construction precomputed once per peer pair via
// crypto_box_beforenm, used for content whose authorship a party can
// plausibly deny since anyone holding either party's secret key could have
// produced it.
package deniable
