package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudx-io/nameauction/attestation"
	"github.com/cloudx-io/nameauction/auction"
	"github.com/cloudx-io/nameauction/auctionapi"
	"github.com/cloudx-io/nameauction/core"
)

func (s *Server) dispatch(ctx context.Context, req *auctionapi.Request) *auctionapi.Response {
	now := s.clock()
	env := auction.Env{Sender: req.Sender, Now: now}

	switch req.Type {
	case auctionapi.TypePing:
		return &auctionapi.Response{
			Type:      auctionapi.TypePong,
			Success:   true,
			Message:   "auction server is healthy",
			Timestamp: now.Unix(),
		}

	case auctionapi.TypeCreateAuction:
		return s.command(req, func() (*auction.Response, error) {
			return s.engine.CreateAuction(ctx, env, auction.CreateAuctionParams{
				ResourceName:    req.ResourceName,
				StartingPrice:   req.StartingPrice,
				MaxParticipants: req.MaxParticipants,
			})
		})

	case auctionapi.TypePlaceBid:
		return s.command(req, func() (*auction.Response, error) {
			return s.engine.PlaceBid(ctx, env, req.Funds)
		})

	case auctionapi.TypeRetreatBid:
		return s.command(req, func() (*auction.Response, error) {
			return s.engine.RetreatBid(ctx, env)
		})

	case auctionapi.TypeStartAuction:
		return s.command(req, func() (*auction.Response, error) {
			return s.engine.StartAuction(ctx, env)
		})

	case auctionapi.TypeCompleteAuction:
		return s.completeAuction(ctx, req, env)

	case auctionapi.TypeTransferStatus:
		return s.transferStatus(ctx, req, now)

	case auctionapi.TypeGetActiveAuction:
		view, err := s.engine.GetActiveAuction(ctx, now)
		return s.query(req, view, err)

	case auctionapi.TypeGetAuctionByUser:
		user := req.User
		if user == "" {
			user = req.Sender
		}
		pending, err := s.engine.GetAuctionByUser(ctx, user)
		return s.query(req, pending, err)

	case auctionapi.TypeGetPendingAuctions:
		pending, err := s.engine.GetPendingAuctions(ctx)
		return s.query(req, pending, err)

	default:
		return auctionapi.ErrorResponse(auctionapi.TypeError, fmt.Errorf("unknown request type: %s", req.Type))
	}
}

func (s *Server) command(req *auctionapi.Request, run func() (*auction.Response, error)) *auctionapi.Response {
	if strings.TrimSpace(req.Sender) == "" {
		return auctionapi.ErrorResponse(req.Type, fmt.Errorf("sender is required"))
	}
	resp, err := run()
	if err != nil {
		return auctionapi.ErrorResponse(req.Type, err)
	}
	return auctionapi.CommandResponse(req.Type, resp)
}

func (s *Server) query(req *auctionapi.Request, data any, err error) *auctionapi.Response {
	if err != nil {
		return auctionapi.ErrorResponse(req.Type, err)
	}
	resp := &auctionapi.Response{Type: req.Type, Success: true}
	if err := resp.SetData(data); err != nil {
		return auctionapi.ErrorResponse(req.Type, err)
	}
	return resp
}

// completeAuction attaches a settlement attestation when an attester is configured.
// The completion is already committed, so an attestation failure is reported in the
// message but does not turn the response into a failure.
func (s *Server) completeAuction(ctx context.Context, req *auctionapi.Request, env auction.Env) *auctionapi.Response {
	var settlement *auction.Settlement
	resp := s.command(req, func() (*auction.Response, error) {
		r, err := s.engine.CompleteAuction(ctx, env)
		if err == nil {
			settlement = r.Settlement
		}
		return r, err
	})
	if !resp.Success || settlement == nil || s.attester == nil {
		return resp
	}

	cose, userData, err := attestation.GenerateSettlementAttestation(s.attester, *settlement, env.Now)
	if err != nil {
		log.Printf("ERROR: settlement attestation for %s failed: %v", settlement.ResourceName, err)
		resp.Message = fmt.Sprintf("auction completed; attestation failed: %v", err)
		return resp
	}
	resp.AttestationCOSEBase64 = string(cose.Base64())
	if err := resp.SetData(userData); err != nil {
		log.Printf("ERROR: %v", err)
	}
	return resp
}

func (s *Server) transferStatus(ctx context.Context, req *auctionapi.Request, now time.Time) *auctionapi.Response {
	if s.gateway == nil {
		return auctionapi.ErrorResponse(req.Type, core.Unauthorized(fmt.Errorf("no host public key configured")))
	}
	coseBytes, err := base64.StdEncoding.DecodeString(req.ConfirmationCOSEBase64)
	if err != nil || len(coseBytes) == 0 {
		return auctionapi.ErrorResponse(req.Type, core.Unauthorized(fmt.Errorf("confirmation_cose_base64 is missing or invalid")))
	}

	resp, _, err := s.gateway.Confirm(ctx, now, coseBytes)
	if err != nil {
		return auctionapi.ErrorResponse(req.Type, err)
	}
	return auctionapi.CommandResponse(req.Type, resp)
}
