// Command fastcore is the process entrypoint: it loads configuration,
// builds the App (listener + route table + worker fleet), and runs it
// until a shutdown signal drains the last worker. The route table is
// fixed at spec.md §6's four seed paths, so unlike the teacher's
// examples/basic/main.go there is no route-registration step here.
package main

import (
	"log"

	"github.com/searchktools/fastcore/app"
	"github.com/searchktools/fastcore/config"
)

func main() {
	cfg := config.New()

	a := app.New(cfg)
	if err := a.Run(); err != nil {
		log.Fatalf("fastcore: %v", err)
	}
}
