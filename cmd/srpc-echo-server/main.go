// Example of offering a service and echoing back every request.
package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/go-srpc/srpc"
)

func main() {
	log.SetLevel(log.InfoLevel)
	port := flag.Int("port", 9000, "UDP port to bind")
	flag.Parse()

	eng, err := srpc.Init(uint16(*port))
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer eng.Shutdown()

	svc, err := eng.Offer("Echo")
	if err != nil {
		log.Fatalf("offer: %v", err)
	}

	ip, bound := eng.Details()
	log.Infof("offering Echo on %s:%d", ip, bound)

	for {
		handle, req, err := svc.Query(4096)
		if err != nil {
			log.WithError(err).Warn("query failed")
			continue
		}
		log.Infof("received %d bytes, echoing back", len(req))
		if err := svc.Response(handle, req); err != nil {
			log.WithError(err).Warn("response failed")
		}
	}
}
