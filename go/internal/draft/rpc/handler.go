package rpc

import (
	"net/http"

	"connectrpc.com/connect"
)

// NewHandler builds an HTTP handler from the service implementation. It
// returns the path on which to mount the handler and the handler itself.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateDraftProcedure, connect.NewUnaryHandler(CreateDraftProcedure, svc.CreateDraft, opts...))
	mux.Handle(SetParticipantsProcedure, connect.NewUnaryHandler(SetParticipantsProcedure, svc.SetParticipants, opts...))
	mux.Handle(AddShiftsProcedure, connect.NewUnaryHandler(AddShiftsProcedure, svc.AddShifts, opts...))
	mux.Handle(ScheduleDraftProcedure, connect.NewUnaryHandler(ScheduleDraftProcedure, svc.ScheduleDraft, opts...))
	mux.Handle(StartDraftProcedure, connect.NewUnaryHandler(StartDraftProcedure, svc.StartDraft, opts...))
	mux.Handle(PauseDraftProcedure, connect.NewUnaryHandler(PauseDraftProcedure, svc.PauseDraft, opts...))
	mux.Handle(ResumeDraftProcedure, connect.NewUnaryHandler(ResumeDraftProcedure, svc.ResumeDraft, opts...))
	mux.Handle(CancelDraftProcedure, connect.NewUnaryHandler(CancelDraftProcedure, svc.CancelDraft, opts...))
	mux.Handle(SubmitPickProcedure, connect.NewUnaryHandler(SubmitPickProcedure, svc.SubmitPick, opts...))
	mux.Handle(GetDraftProcedure, connect.NewUnaryHandler(GetDraftProcedure, svc.GetDraft, opts...))
	mux.Handle(ListDraftsProcedure, connect.NewUnaryHandler(ListDraftsProcedure, svc.ListDrafts, opts...))
	mux.Handle(IsMyTurnProcedure, connect.NewUnaryHandler(IsMyTurnProcedure, svc.IsMyTurn, opts...))
	mux.Handle(GetPickTimerProcedure, connect.NewUnaryHandler(GetPickTimerProcedure, svc.GetPickTimer, opts...))
	mux.Handle(ListRemainingShiftsProcedure, connect.NewUnaryHandler(ListRemainingShiftsProcedure, svc.ListRemainingShifts, opts...))
	mux.Handle(GetParticipantPicksProcedure, connect.NewUnaryHandler(GetParticipantPicksProcedure, svc.GetParticipantPicks, opts...))
	mux.Handle(GetStandingsProcedure, connect.NewUnaryHandler(GetStandingsProcedure, svc.GetStandings, opts...))
	mux.Handle(GetPickLogProcedure, connect.NewUnaryHandler(GetPickLogProcedure, svc.GetPickLog, opts...))

	return "/" + ServiceName + "/", mux
}
