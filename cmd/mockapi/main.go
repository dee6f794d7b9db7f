package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"tutorly/internal/apitest"
	"tutorly/internal/config"
	"tutorly/internal/domain"
	"tutorly/internal/resources"
)

func main() {
	cfg := config.Load()

	api := apitest.New()
	seed(api)

	srv := &http.Server{
		Addr:              cfg.MockAPIAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("mock course service on %s (user demo / demo)", cfg.MockAPIAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func seed(api *apitest.Server) {
	api.AddUser("demo", "demo@example.com", "demo")

	api.AddCourse(domain.Course{
		Title:       "Go Basics",
		Description: "Types, functions and the standard library.",
		Instructor:  "R. Pike",
		Duration:    "4 weeks",
		Category:    "Programming",
		Syllabus:    "Getting started\nTypes and values\nFunctions\nPackages",
		Resources:   resources.FromString("https://go.dev/doc, Effective Go"),
	})
	api.AddCourse(domain.Course{
		Title:       "Color Theory",
		Description: "Hue, value and contrast for screens.",
		Price:       "19.99",
		Category:    "Design",
		Syllabus:    "Color wheels\nContrast",
		Resources:   resources.FromString(`["https://example.com/palettes", "Swatch sheet"]`),
	})
	api.AddCourse(domain.Course{
		Title:       "Spreadsheets for Analysts",
		Description: "Formulas, pivots and charts.",
		Price:       "9",
		Category:    "Business",
	})
}
