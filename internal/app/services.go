package app

import (
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type Services struct {
	Verifier   services.TokenVerifier
	Resolver   services.TenantResolver
	Blobs      services.BlobCredentialService
	Media      services.MediaLoader
	Embeddings services.EmbeddingService
	Documents  services.DocumentAnalysisService
	Styles     services.StyleAnalysisService
	Library    services.StyleLibraryService
	History    services.HistoryService
	Images     services.ImageGenerationService
	Optimizer  services.PromptOptimizer
	Backfill   services.BackfillService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	verifier := services.NewTokenVerifier(log, services.TokenVerifierConfig{
		TenantID: cfg.OIDCTenantID,
		ClientID: cfg.OIDCClientID,
		JWKSURL:  cfg.OIDCJWKSURL,
		Bypass:   cfg.AuthBypass,
	})
	if verifier.Bypass() {
		log.Warn("AUTH_BYPASS enabled; every request runs as the local developer identity")
	}

	resolver := services.NewTenantResolver(log, reposet.Tenant, reposet.User, services.TenantResolverConfig{
		Strategy:          cfg.TenantStrategy,
		DefaultTenantName: cfg.DefaultTenantName,
	})

	media := services.NewMediaLoader(log, clients.Buckets, services.MediaLoaderConfig{
		MaxBytes: cfg.MaxFetchBytes,
		Timeout:  cfg.FetchTimeout(),
	})
	embeddings := services.NewEmbeddingService(log, clients.Gemini, cfg.EmbeddingDim)
	history := services.NewHistoryService(log, reposet.History, reposet.Style)

	return Services{
		Verifier: verifier,
		Resolver: resolver,
		Blobs: services.NewBlobCredentialService(log, clients.Signer, services.BlobCredentialConfig{
			DefaultContainer:  cfg.StorageDefaultContainer,
			AllowedContainers: cfg.StorageAllowedContainers,
		}),
		Media:      media,
		Embeddings: embeddings,
		Documents:  services.NewDocumentAnalysisService(log, clients.Gemini, media),
		Styles:     services.NewStyleAnalysisService(log, clients.Gemini, media, embeddings, reposet.Style),
		Library:    services.NewStyleLibraryService(log, reposet.Style, embeddings),
		History:    history,
		Images:     services.NewImageGenerationService(log, clients.Gemini, media, history),
		Optimizer:  services.NewPromptOptimizer(log, clients.Gemini),
		Backfill:   services.NewBackfillService(log, reposet.Style, embeddings, cfg.BackfillConcurrency),
	}
}
