package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

func (server *Server) handleCreateReservation(ctx *gin.Context) {
	var request createReservationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid reservation request", err))
		return
	}
	hold, err := server.services.Reservations.CreateReservation(ctx.Request.Context(), reservation.CreateInput{
		SpaceID:       request.SpaceID,
		UserID:        request.UserID,
		Start:         request.Start,
		End:           request.End,
		ExpiryMinutes: request.ExpiryMinutes,
		SlotIDs:       request.SlotIDs,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"reservation": hold})
}

func (server *Server) handleConfirmReservation(ctx *gin.Context) {
	hold, err := server.services.Reservations.ConfirmReservation(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": hold})
}

func (server *Server) handleCancelReservation(ctx *gin.Context) {
	hold, err := server.services.Reservations.CancelReservation(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": hold})
}

func (server *Server) handleCreateBooking(ctx *gin.Context) {
	var request createBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid booking request", err))
		return
	}
	record, err := server.services.Bookings.CreateBooking(ctx.Request.Context(), booking.CreateInput{
		SpaceID:        request.SpaceID,
		WorkspaceID:    request.WorkspaceID,
		UserID:         request.UserID,
		BookingType:    reservation.BookingType(request.BookingType),
		CheckIn:        request.CheckIn,
		CheckOut:       request.CheckOut,
		Guests:         request.Guests,
		BasePrice:      ledger.Amount(request.BasePrice),
		DiscountAmount: ledger.Amount(request.DiscountAmount),
		TaxAmount:      ledger.Amount(request.TaxAmount),
		TotalPrice:     ledger.Amount(request.TotalPrice),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"booking": record})
}

func (server *Server) handleGetBooking(ctx *gin.Context) {
	record, err := server.services.Bookings.GetBooking(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": record})
}

func (server *Server) handleConfirmBooking(ctx *gin.Context) {
	record, err := server.services.Bookings.ConfirmBooking(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": record})
}

// handlePayBooking holds the booking's price on the workspace wallet as a
// pending payment. The hold is released at check-in.
func (server *Server) handlePayBooking(ctx *gin.Context) {
	var request payBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && ctx.Request.ContentLength > 0 {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid payment request", err))
		return
	}
	record, err := server.services.Bookings.GetBooking(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	wallet, transaction, err := server.services.Escrow.HoldBookingPayment(ctx.Request.Context(), escrow.HoldInput{
		BookingID:   record.BookingID,
		WorkspaceID: record.WorkspaceID,
		Amount:      record.TotalPrice,
		PaymentID:   request.PaymentID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"wallet":      wallet,
		"transaction": transaction,
	})
}

func (server *Server) handleCheckIn(ctx *gin.Context) {
	record, err := server.services.Bookings.CheckIn(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": record})
}

func (server *Server) handleCheckOut(ctx *gin.Context) {
	record, err := server.services.Bookings.CheckOut(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": record})
}

func (server *Server) handleCancelBooking(ctx *gin.Context) {
	var request cancelBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid cancellation request", err))
		return
	}
	result, err := server.services.Cancellations.CancelBooking(ctx.Request.Context(), cancellation.CancelInput{
		BookingID:         ctx.Param("id"),
		CancelledBy:       request.CancelledBy,
		Reason:            request.Reason,
		ReasonDescription: request.ReasonDescription,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"cancellation":      result.Cancellation,
		"requires_approval": result.RequiresApproval,
		"refund":            result.Refund,
	})
}

func (server *Server) handleGetCancellation(ctx *gin.Context) {
	record, err := server.services.Cancellations.GetCancellation(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancellation": record})
}

func (server *Server) handleApproveCancellation(ctx *gin.Context) {
	var request approveCancellationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid approval request", err))
		return
	}
	input := cancellation.ApproveInput{
		CancellationID: ctx.Param("id"),
		ApprovedBy:     request.ApprovedBy,
		AdminNotes:     request.AdminNotes,
	}
	if request.RefundOverride != nil {
		override := ledger.Amount(*request.RefundOverride)
		input.RefundOverride = &override
	}
	result, err := server.services.Cancellations.ApproveCancellation(ctx.Request.Context(), input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"cancellation": result.Cancellation,
		"refund":       result.Refund,
	})
}

func (server *Server) handleRejectCancellation(ctx *gin.Context) {
	var request rejectCancellationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid rejection request", err))
		return
	}
	record, err := server.services.Cancellations.RejectCancellation(ctx.Request.Context(), ctx.Param("id"), request.RejectedBy, request.AdminNotes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancellation": record})
}

func (server *Server) handleGetWallet(ctx *gin.Context) {
	wallet, err := server.services.Ledger.GetOrCreateWallet(ctx.Request.Context(), ctx.Param("userID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (server *Server) handleGetWorkspaceWallet(ctx *gin.Context) {
	wallet, err := server.services.Ledger.GetOrCreateWorkspaceWallet(ctx.Request.Context(), ctx.Param("workspaceID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (server *Server) handleInitiateDeposit(ctx *gin.Context) {
	var request initiateDepositRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid deposit request", err))
		return
	}
	deposit, authorization, err := server.services.Payments.InitiateDeposit(ctx.Request.Context(), payment.DepositInput{
		UserID:        ctx.Param("userID"),
		Email:         request.Email,
		Amount:        ledger.Amount(request.Amount),
		PaymentMethod: request.PaymentMethod,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"deposit":       deposit,
		"authorization": authorization,
	})
}

func (server *Server) handleVerifyDeposit(ctx *gin.Context) {
	var request verifyDepositRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid verification request", err))
		return
	}
	deposit, transaction, err := server.services.Payments.VerifyDeposit(ctx.Request.Context(), request.Reference)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"deposit":     deposit,
		"transaction": transaction,
	})
}

func (server *Server) handleRequestWithdrawal(ctx *gin.Context) {
	var request requestWithdrawalRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondError(ctx, faults.Wrap(faults.KindValidation, "invalid withdrawal request", err))
		return
	}
	withdrawal, err := server.services.Payments.RequestWithdrawal(ctx.Request.Context(), payment.WithdrawalInput{
		WorkspaceID:   request.WorkspaceID,
		Amount:        ledger.Amount(request.Amount),
		AccountNumber: request.AccountNumber,
		AccountName:   request.AccountName,
		BankCode:      request.BankCode,
		Notes:         request.Notes,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

func (server *Server) handleProcessWithdrawal(ctx *gin.Context) {
	withdrawal, err := server.services.Payments.ProcessWithdrawal(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

func (server *Server) handleCompleteWithdrawal(ctx *gin.Context) {
	withdrawal, err := server.services.Payments.CompleteWithdrawal(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}
