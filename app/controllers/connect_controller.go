package controllers

import (
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/connect"
	"github.com/nmarkov/adpulse/internal/pkg/env"
	"github.com/nmarkov/adpulse/internal/pkg/jobqueue"
	"github.com/nmarkov/adpulse/internal/pkg/metrics/counter"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

const fetchWindowDays = 30

// connectError maps provider errors onto HTTP statuses.
func connectError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, connect.ErrInvalidPlatform):
		return jsonError(c, fiber.StatusNotFound, "Unknown platform")
	case errors.Is(err, connect.ErrNotConnected):
		return jsonError(c, fiber.StatusBadRequest, "Platform not connected")
	case errors.Is(err, connect.ErrReauthorizationRequired):
		return jsonError(c, fiber.StatusUnauthorized, "Authorization expired, please reconnect the platform")
	case errors.Is(err, connect.ErrAuthorization), errors.Is(err, connect.ErrUserNotFound):
		return jsonError(c, fiber.StatusBadRequest, "Invalid authorization request")
	case errors.Is(err, connect.ErrUpstream):
		log.Printf("upstream provider error: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "The platform API returned an error")
	default:
		log.Printf("connect handler error: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

// HandleConnectAuth starts the OAuth flow for a platform and redirects the
// browser to the provider's consent page.
func HandleConnectAuth(c *fiber.Ctx) error {
	provider, err := registry.Get(c.Params("provider"))
	if err != nil {
		return connectError(c, err)
	}
	params := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		params.Set(string(key), string(value))
	})

	authURL, err := provider.BeginAuthorization(c.Context(), usercontext.GetUserID(c), params)
	if err != nil {
		return connectError(c, err)
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

// HandleConnectCallback finishes the OAuth flow. The provider redirects the
// browser here, so on success we forward to the frontend instead of
// returning JSON.
func HandleConnectCallback(c *fiber.Ctx) error {
	provider, err := registry.Get(c.Params("provider"))
	if err != nil {
		return connectError(c, err)
	}
	if errParam := c.Query("error"); errParam != "" {
		return redirectToFrontend(c, provider.Name(), "denied")
	}

	params := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		params.Set(string(key), string(value))
	})

	if _, err := provider.CompleteAuthorization(c.Context(), params); err != nil {
		log.Printf("%s callback failed: %v", provider.Name(), err)
		return redirectToFrontend(c, provider.Name(), "error")
	}
	return redirectToFrontend(c, provider.Name(), "connected")
}

func redirectToFrontend(c *fiber.Ctx, provider, status string) error {
	frontend := env.GetEnv("FRONTEND_URL", env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"))
	q := url.Values{"platform": {provider}, "status": {status}}
	return c.Redirect(frontend+"/integrations?"+q.Encode(), fiber.StatusFound)
}

// HandleListAccounts enumerates the accounts reachable through a connected
// platform.
func HandleListAccounts(c *fiber.Ctx) error {
	provider, err := registry.Get(c.Params("provider"))
	if err != nil {
		return connectError(c, err)
	}
	accounts, err := provider.ListAccounts(c.Context(), usercontext.GetUserID(c))
	if err != nil {
		return connectError(c, err)
	}
	if accounts == nil {
		accounts = []connect.Account{}
	}
	return jsonOK(c, fiber.Map{
		"platform": provider.Name(),
		"accounts": accounts,
	})
}

// HandleFetchData pulls a platform's reporting data into storage. The
// window defaults to the last 30 days.
func HandleFetchData(c *fiber.Ctx) error {
	provider, err := registry.Get(c.Params("provider"))
	if err != nil {
		return connectError(c, err)
	}

	until := c.Query("until", time.Now().Format("2006-01-02"))
	since := c.Query("since", time.Now().AddDate(0, 0, -fetchWindowDays).Format("2006-01-02"))
	accountID := c.Query("accountId")
	userID := usercontext.GetUserID(c)

	if c.QueryBool("async") {
		job, err := jobqueue.EnqueueFetch(jobqueue.FetchDataJobPayload{
			UserID:    userID,
			Platform:  provider.Name(),
			AccountID: accountID,
			Since:     since,
			Until:     until,
		})
		if err != nil {
			log.Printf("fetch enqueue failed: %v", err)
			return jsonError(c, fiber.StatusServiceUnavailable, "Background fetching is unavailable")
		}
		if err := counter.AddFetch(userID); err != nil {
			log.Printf("fetch counter increment failed: %v", err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success": true,
			"job_id":  job.ID,
			"status":  job.Status,
		})
	}

	count, err := provider.FetchPerformanceData(c.Context(), userID, accountID, since, until)
	if err != nil {
		return connectError(c, err)
	}
	if err := counter.AddFetch(userID); err != nil {
		log.Printf("fetch counter increment failed: %v", err)
	}
	return jsonOK(c, fiber.Map{
		"platform": provider.Name(),
		"records":  count,
		"since":    since,
		"until":    until,
	})
}

// HandleDisconnect drops the stored token and removes the platform from
// the user's connected set. Stored datasets are kept.
func HandleDisconnect(c *fiber.Ctx) error {
	provider, err := registry.Get(c.Params("provider"))
	if err != nil {
		return connectError(c, err)
	}
	userID := usercontext.GetUserID(c)

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Token.Delete(userID, provider.Name()); err != nil {
		log.Printf("disconnect: token delete failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Disconnect failed")
	}
	if err := repos.User.RemovePlatform(userID, provider.Name()); err != nil {
		log.Printf("disconnect: platform removal failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Disconnect failed")
	}
	return jsonOK(c, fiber.Map{
		"platform": provider.Name(),
		"message":  "Platform disconnected",
	})
}
