// Command portcheck is an operational diagnostic for storage connectivity:
// it resolves a host and dials host:port with a timeout, which separates DNS
// problems from firewalled ports.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"
)

func main() {
	host := flag.String("host", "localhost", "host to probe")
	port := flag.Int("port", 5432, "TCP port to probe")
	timeout := flag.Duration("timeout", 5*time.Second, "dial timeout")
	flag.Parse()

	if !checkPort(*host, *port, *timeout) {
		fmt.Println()
		fmt.Println("Next steps if the connection fails:")
		fmt.Println("1. Check whether this network blocks the database port")
		fmt.Println("2. Try from a different network")
		fmt.Println("3. Verify the host and port in DATABASE_URL")
		os.Exit(1)
	}
}

func checkPort(host string, port int, timeout time.Duration) bool {
	fmt.Printf("Testing connection to %s:%d...\n", host, port)

	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		fmt.Printf("DNS resolution failed for %s: %v\n", host, err)
		return false
	}
	fmt.Printf("DNS resolved: %s -> %s\n", host, addrs[0])

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(addrs[0], fmt.Sprint(port)), timeout)
	if err != nil {
		fmt.Printf("Port %d is closed or filtered: %v\n", port, err)
		return false
	}
	_ = conn.Close()
	fmt.Printf("Port %d is open and accessible\n", port)
	return true
}
