// Example client that dispatches a call asynchronously and invokes a
// callback with the result, instead of blocking the caller's own goroutine.
package main

import (
	"flag"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/go-srpc/srpc"
)

func callAsync(conn *srpc.Connection, query []byte, maxResp int, cb func([]byte, error)) {
	go func() {
		resp, err := conn.Call(query, maxResp)
		cb(resp, err)
	}()
}

func main() {
	log.SetLevel(log.InfoLevel)
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9001, "server port")
	flag.Parse()

	eng, err := srpc.Init(0)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer eng.Shutdown()

	conn, err := eng.Connect(*host, uint16(*port), "Upper", 0)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()

	var wg sync.WaitGroup
	wg.Add(1)
	callAsync(conn, []byte("async call"), 4096, func(resp []byte, err error) {
		defer wg.Done()
		if err != nil {
			log.WithError(err).Error("call failed")
			return
		}
		log.Infof("server replied: %s", resp)
	})
	wg.Wait()
}
