// Example client connecting to srpc-echo-server and making one call.
package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/go-srpc/srpc"
)

func main() {
	log.SetLevel(log.InfoLevel)
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9000, "server port")
	message := flag.String("message", "hello, srpc", "message to echo")
	flag.Parse()

	eng, err := srpc.Init(0)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer eng.Shutdown()

	conn, err := eng.Connect(*host, uint16(*port), "Echo", 0)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()

	resp, err := conn.Call([]byte(*message), 4096)
	if err != nil {
		log.Fatalf("call: %v", err)
	}
	log.Infof("echo server replied: %s", resp)
}
