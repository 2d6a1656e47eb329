package wizard

import (
	"context"
	"fmt"
	"strings"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/models"
)

const (
	paymentPathPush   = "push"
	paymentPathManual = "manual"
)

// InitiatePushPayment asks the gateway to prompt phone for the application
// fee. An empty phone uses the applicant's number from the draft. Failures
// are kept on the payment state and never affect navigation.
func (c *Controller) InitiatePushPayment(ctx context.Context, phone string) (*models.PushPaymentResult, error) {
	c.mu.Lock()
	if err := c.checkPaymentLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = c.draft.FullPhone()
	}
	if phone == "" {
		c.payment.Error = "enter the phone number to charge"
		c.mu.Unlock()
		return nil, errors.NewPaymentInitiateFailedError(fmt.Errorf("phone number is required"))
	}
	req := models.PushPaymentRequest{
		Phone:          phone,
		Amount:         c.opts.ApplicationFee,
		ApplicationRef: c.draft.ApplicationRef,
	}
	c.payment.Error = ""
	c.mu.Unlock()

	result, err := c.deps.Payments.InitiatePush(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.NewWizardClosedError()
	}
	if err != nil {
		c.payment.Error = "could not start the payment, please try again"
		metrics.WizardPayments.WithLabelValues(paymentPathPush, "initiate", "failed").Inc()
		c.log.Warn("Push payment initiation failed", map[string]interface{}{
			"applicationRef": req.ApplicationRef,
			"error":          err,
		})
		return nil, errors.NewPaymentInitiateFailedError(err)
	}

	c.payment.CheckoutRequestID = result.CheckoutRequestID
	c.payment.Instructions = append([]string(nil), result.Instructions...)
	metrics.WizardPayments.WithLabelValues(paymentPathPush, "initiate", "success").Inc()
	c.log.Info("Push payment initiated", map[string]interface{}{
		"applicationRef":    req.ApplicationRef,
		"checkoutRequestId": result.CheckoutRequestID,
	})
	return result, nil
}

// VerifyPushPayment checks receipt against the pending push request. On
// success the payment fields are written to the draft and both payment paths
// are locked.
func (c *Controller) VerifyPushPayment(ctx context.Context, receipt string) error {
	c.mu.Lock()
	if err := c.checkPaymentLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	receipt = strings.ToUpper(strings.TrimSpace(receipt))
	if receipt == "" {
		c.payment.Error = "enter the receipt code"
		c.mu.Unlock()
		return errors.NewPaymentVerifyFailedError(fmt.Errorf("receipt code is required"))
	}
	req := models.VerifyPaymentRequest{
		ApplicationRef:    c.draft.ApplicationRef,
		ReceiptCode:       receipt,
		CheckoutRequestID: c.payment.CheckoutRequestID,
	}
	c.payment.Error = ""
	c.mu.Unlock()

	err := c.deps.Payments.VerifyReceipt(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.NewWizardClosedError()
	}
	if err != nil {
		c.payment.Error = "the receipt could not be verified"
		metrics.WizardPayments.WithLabelValues(paymentPathPush, "verify", "failed").Inc()
		c.log.Warn("Payment verification failed", map[string]interface{}{
			"applicationRef": req.ApplicationRef,
			"error":          err,
		})
		return errors.NewPaymentVerifyFailedError(err)
	}
	if c.step.Terminal() {
		return errors.NewInvalidTransitionError("application already submitted")
	}

	reference := req.CheckoutRequestID
	if reference == "" {
		reference = receipt
	}
	next := c.draft.Clone()
	next.PaymentMethod = models.PaymentMethodMpesa
	next.PaymentReference = reference
	next.MpesaReceipt = receipt
	c.draft = next
	c.payment.Verified = true

	for _, name := range []string{"paymentMethod", "paymentReference", "mpesaReceipt"} {
		delete(c.errors, name)
	}
	metrics.WizardPayments.WithLabelValues(paymentPathPush, "verify", "success").Inc()
	c.persistLocked(ctx, "verify_payment")
	return nil
}

// SetManualPayment records a reference the applicant typed in, such as a
// bank slip number. Nothing is checked over the network.
func (c *Controller) SetManualPayment(ctx context.Context, method models.PaymentMethod, reference string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkPaymentLocked(); err != nil {
		return err
	}
	if method == "" {
		method = models.PaymentMethodBank
	}
	if !method.Valid() {
		return errors.NewValidationError("payment", map[string]string{"paymentMethod": "select a valid payment method"})
	}

	next := c.draft.Clone()
	next.PaymentMethod = method
	next.PaymentReference = strings.TrimSpace(reference)
	next.MpesaReceipt = ""
	c.draft = next
	c.payment.Error = ""

	for _, name := range []string{"paymentMethod", "paymentReference"} {
		delete(c.errors, name)
	}
	metrics.WizardPayments.WithLabelValues(paymentPathManual, "set", "success").Inc()
	c.persistLocked(ctx, "manual_payment")
	return nil
}

func (c *Controller) checkPaymentLocked() error {
	if err := c.checkMutableLocked(); err != nil {
		return err
	}
	if c.payment.Verified {
		return errors.NewPaymentLockedError()
	}
	return nil
}
