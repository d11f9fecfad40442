package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"tryon-live/internal/application/usecases"
	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	domainservices "tryon-live/internal/domain/services"
	"tryon-live/internal/infrastructure/api"
	"tryon-live/internal/infrastructure/camera"
	"tryon-live/internal/infrastructure/external"
	infrarepos "tryon-live/internal/infrastructure/repositories"
	infraservices "tryon-live/internal/infrastructure/services"
)

func main() {
	// Backend selection: "gemini" edits through the Gemini image model,
	// "vertex" runs the dedicated virtual try-on model.
	editBackend := os.Getenv("EDIT_BACKEND")
	if editBackend == "" {
		editBackend = "gemini"
	}

	projectID := os.Getenv("PROJECT_ID")
	location := os.Getenv("LOCATION")
	if location == "" {
		location = "us-central1"
	}

	editModel := os.Getenv("EDIT_MODEL")
	if editModel == "" {
		editModel = "gemini-2.5-flash-image"
	}

	vtoModel := os.Getenv("VTO_MODEL")
	if vtoModel == "" {
		vtoModel = "virtual-try-on-preview-08-04"
	}

	useSDK := os.Getenv("USE_SDK") == "true"

	cameraIndex := 0
	if v := os.Getenv("CAMERA_INDEX"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid CAMERA_INDEX %q: %v", v, err)
		}
		cameraIndex = idx
	}

	primaryRelay := os.Getenv("PRIMARY_RELAY")
	if primaryRelay == "" {
		primaryRelay = "https://api.allorigins.win/raw?url="
	}
	secondaryRelay := os.Getenv("SECONDARY_RELAY")
	if secondaryRelay == "" {
		secondaryRelay = "https://corsproxy.io/?"
	}

	log.Printf("[boot] EDIT_BACKEND=%s", editBackend)
	if editBackend == "vertex" {
		log.Printf("[boot] Using VTO_MODEL=%s", vtoModel)
		log.Printf("[boot] USE_SDK=%v (false=REST API, true=genai.Client)", useSDK)
	} else {
		log.Printf("[boot] Using EDIT_MODEL=%s", editModel)
	}

	clientPools := infraservices.NewClientPoolService(projectID, location)
	defer clientPools.Close()

	editService, err := buildEditService(editBackend, clientPools, editModel, projectID, location, vtoModel, useSDK)
	if err != nil {
		log.Fatalf("Failed to create edit service: %v", err)
	}
	defer editService.Close()

	fetcher, err := external.NewRelayFetcher(nil, []external.FetchRoute{
		external.NewRelayRoute("primary-relay", primaryRelay),
		external.NewRelayRoute("secondary-relay", secondaryRelay),
		external.NewDirectRoute(),
	})
	if err != nil {
		log.Fatalf("Failed to create image fetcher: %v", err)
	}

	sessionRepository := infrarepos.NewMemorySessionRepository()

	editDomainService := domainservices.NewEditDomainService(fetcher, editService)

	cameras := camera.NewManager()
	capturer := camera.NewFrameCaptureService()

	onAddToCart := func(product *entities.Product) {
		log.Printf("Added to cart: %s (%s)", product.Name(), product.ID())
	}

	sessionUseCase := usecases.NewTryOnSessionUseCase(
		cameras,
		capturer,
		editDomainService,
		sessionRepository,
		onAddToCart,
	)
	defer sessionUseCase.End(context.Background())

	handler := api.NewSessionHandler(sessionUseCase, cameraIndex)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s", port)
	log.Printf("Camera index: %d", cameraIndex)
	log.Printf("Relay routes: %s, %s, direct", primaryRelay, secondaryRelay)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildEditService(
	backend string,
	pools repositories.ClientPoolService,
	editModel, projectID, location, vtoModel string,
	useSDK bool,
) (repositories.EditAIService, error) {
	switch backend {
	case "vertex":
		if projectID == "" {
			log.Fatal("PROJECT_ID must be set for the vertex backend")
		}
		return external.NewVertexEditService(pools.VertexAIPool(), projectID, location, vtoModel, useSDK), nil
	default:
		geminiAPIKey := os.Getenv("GEMINI_API_KEY")
		if geminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY must be set for the gemini backend")
		}
		client, err := pools.GenAIPool().GetGenAIClient(context.Background(), geminiAPIKey)
		if err != nil {
			return nil, err
		}
		return external.NewGeminiEditService(client, editModel), nil
	}
}
