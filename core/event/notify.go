package event

import (
	"context"
	"net/mail"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

type (
	requestMailData struct {
		RequesterName string
		ElementName   string
		EventBody     string
		EventWhen     string
	}

	statusMailData struct {
		ElementName  string
		EventBody    string
		EventWhen    string
		Status       string
		ApproverName string
		Reason       string
	}
)

func (svc *Service) when(evt Event) string {
	loc := svc.location()
	return evt.StartsAt.In(loc).Format("Mon 02/01/2006") + " " + evt.IntervalString(loc)
}

func (svc *Service) baseURL() string {
	if svc.Conf == nil {
		return ""
	}
	return svc.Conf.FrontendBaseURL
}

func (svc *Service) addresses(ctx context.Context, userIDs ...string) []mail.Address {
	addrs := make([]mail.Address, 0, len(userIDs))
	if svc.Directory == nil {
		return addrs
	}
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		addr, err := svc.Directory.Address(ctx, id)
		if err != nil {
			if svc.Logger != nil {
				svc.Logger.Warn("looking up user address", err)
			}
			continue
		}
		if addr.Address != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// notifyRequest tells the owners of an element that someone wants to use it.
func (svc *Service) notifyRequest(ctx context.Context, evt Event, el element.Element, requesterID string, ownerIDs []string) {
	if svc.Mail == nil {
		return
	}
	to := svc.addresses(ctx, ownerIDs...)
	if len(to) == 0 {
		return
	}
	var requesterName string
	if rs := svc.addresses(ctx, requesterID); len(rs) > 0 {
		requesterName = rs[0].Name
	}
	svc.Mail.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "Request for " + el.Name,
		TemplateName: "commitment_request",
		TemplateData: requestMailData{
			RequesterName: requesterName,
			ElementName:   el.Name,
			EventBody:     evt.Body,
			EventWhen:     svc.when(evt),
		},
		BaseURL: svc.baseURL(),
	})
}

// notifyDecision tells the event owner what became of their request.
func (svc *Service) notifyDecision(ctx context.Context, evt Event, c Commitment, approverID string) {
	if svc.Mail == nil || evt.OwnerID == "" || evt.OwnerID == approverID {
		return
	}
	to := svc.addresses(ctx, evt.OwnerID)
	if len(to) == 0 {
		return
	}
	var approverName string
	if as := svc.addresses(ctx, approverID); len(as) > 0 {
		approverName = as[0].Name
	}
	elementName := c.ElementName
	if elementName == "" {
		if el, err := svc.Elements.Get(ctx, c.ElementID); err == nil {
			elementName = el.Name
		}
	}
	svc.Mail.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "Request for " + elementName + " " + string(c.Status),
		TemplateName: "commitment_status",
		TemplateData: statusMailData{
			ElementName:  elementName,
			EventBody:    evt.Body,
			EventWhen:    svc.when(evt),
			Status:       string(c.Status),
			ApproverName: approverName,
			Reason:       c.Reason,
		},
		BaseURL: svc.baseURL(),
	})
}
