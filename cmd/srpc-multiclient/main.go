// Example of N goroutines hammering a single offered service concurrently,
// grounded on the fan-out shape of a CANopen master driving several remote
// nodes from one process.
package main

import (
	"flag"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/go-srpc/srpc"
)

func main() {
	log.SetLevel(log.InfoLevel)
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9000, "server port")
	svcName := flag.String("service", "Echo", "service name to call")
	clients := flag.Int("clients", 10, "number of concurrent callers")
	flag.Parse()

	eng, err := srpc.Init(0)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer eng.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			conn, err := eng.Connect(*host, uint16(*port), *svcName, 0)
			if err != nil {
				log.WithField("client", id).WithError(err).Error("connect failed")
				return
			}
			defer conn.Disconnect()

			msg := fmt.Sprintf("client-%d", id)
			resp, err := conn.Call([]byte(msg), 4096)
			if err != nil {
				log.WithField("client", id).WithError(err).Error("call failed")
				return
			}
			log.WithField("client", id).Infof("reply: %s", resp)
		}(i)
	}
	wg.Wait()
}
