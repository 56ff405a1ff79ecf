// Package address expands discovery ranges into concrete host addresses.
//
// Supported range notations:
//
//	10.130.32.0/24            CIDR prefix, network and broadcast excluded for IPv4
//	10.130.32.10-10.130.32.40 inclusive start-end range
//	10.130.32.10-40           shorthand for a range within the last IPv4 octet
//	10.130.32.17              single address
//
// The local subnet is the union of the IPv4 prefixes configured on the
// non-loopback interfaces of the host.
package address
