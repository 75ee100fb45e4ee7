// Command relay runs the LAN store-and-forward relay boundary: it shuttles
// wire envelopes between joined sessions without ever decrypting them.
package main
