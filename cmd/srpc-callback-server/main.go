// Example server offering a service to a pool of worker goroutines, each
// pulling calls off the same queue.
package main

import (
	"flag"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/go-srpc/srpc"
)

const numWorkers = 4

func main() {
	log.SetLevel(log.InfoLevel)
	port := flag.Int("port", 9001, "UDP port to bind")
	flag.Parse()

	eng, err := srpc.Init(uint16(*port))
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer eng.Shutdown()

	svc, err := eng.Offer("Upper")
	if err != nil {
		log.Fatalf("offer: %v", err)
	}

	ip, bound := eng.Details()
	log.Infof("offering Upper on %s:%d with %d workers", ip, bound, numWorkers)

	done := make(chan struct{})
	for i := 0; i < numWorkers; i++ {
		go worker(i, svc)
	}
	<-done
}

func worker(id int, svc *srpc.Service) {
	for {
		handle, req, err := svc.Query(4096)
		if err != nil {
			log.WithField("worker", id).WithError(err).Warn("query failed")
			continue
		}
		resp := []byte(strings.ToUpper(string(req)))
		if err := svc.Response(handle, resp); err != nil {
			log.WithField("worker", id).WithError(err).Warn("response failed")
		}
	}
}
