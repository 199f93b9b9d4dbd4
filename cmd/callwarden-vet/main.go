// callwarden-vet runs the unwanted method check under go vet:
//
//	go build -o callwarden-vet ./cmd/callwarden-vet
//	go vet -vettool=$(pwd)/callwarden-vet ./...
//	go vet -vettool=$(pwd)/callwarden-vet -unwantedcalls.rules=$(pwd)/policy.yaml ./...
package main

import (
	"golang.org/x/tools/go/analysis/unitchecker"

	"github.com/solatis/callwarden/internal/analyzer"
)

func main() {
	unitchecker.Main(analyzer.NewFromFlags())
}
