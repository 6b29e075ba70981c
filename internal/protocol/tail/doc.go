// Package tail owns the MAC layer T-field (tail) wire contract.
//
// Ownership boundary:
//   - 64 bit tail word layout (tail identification + T-field)
//   - Q (system information), P (paging), M (MAC control), N (identities)
//     and C_T (numbered C_S data) message encoding
//   - role dependent interpretation of tail identification 7
//
// Every mask and shift in this package is part of the air interface and must
// not be changed.
package tail
