package main

import (
	"log"

	"github.com/zaefsikder/task-app/app"
)

func main() {
	app.MustInitDB()
	app.MustInitStorage()
	app.InitStripe()
	app.InitClassifier()
	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:8080")
}
