// Package notifier delivers outbound email and webhook notifications.
// Delivery is fire-and-forget: handlers enqueue a task after their state
// transition commits, a worker goroutine sends it, and failures are logged
// without ever surfacing to the caller.
package notifier

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	taskEmail   = "email"
	taskWebhook = "webhook"
)

type Attachment struct {
	Filename string
	Content  []byte
}

// EmailSender delivers one message. Implemented by SMTPSender.
type EmailSender interface {
	Send(to, subject, body string, attachments []Attachment) error
}

type task struct {
	kind string

	to          string
	subject     string
	body        string
	attachments []Attachment

	url     string
	content string
}

type Dispatcher struct {
	email   EmailSender
	webhook *WebhookSender
	tasks   chan task
	wg      sync.WaitGroup
	log     *logrus.Logger
}

// New starts a dispatcher with a single delivery worker. Nil senders are
// allowed; their tasks are silently skipped, which keeps tests and partial
// deployments (no SMTP configured) working.
func New(email EmailSender, webhook *WebhookSender, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	d := &Dispatcher{
		email:   email,
		webhook: webhook,
		tasks:   make(chan task, 256),
		log:     log,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	var err error
	switch t.kind {
	case taskEmail:
		if d.email == nil {
			return
		}
		err = d.email.Send(t.to, t.subject, t.body, t.attachments)
	case taskWebhook:
		if d.webhook == nil {
			return
		}
		err = d.webhook.Post(t.url, t.content)
	}
	if err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"task": t.kind,
			"to":   t.to,
		}).Warn("notification delivery failed")
	}
}

// DispatchEmail enqueues an email without blocking the caller. A full queue
// drops the task with a log line rather than stalling the request.
func (d *Dispatcher) DispatchEmail(to, subject, body string, attachments ...Attachment) {
	d.enqueue(task{kind: taskEmail, to: to, subject: subject, body: body, attachments: attachments})
}

// DispatchWebhook enqueues a webhook POST without blocking the caller.
func (d *Dispatcher) DispatchWebhook(url, content string) {
	if url == "" {
		return
	}
	d.enqueue(task{kind: taskWebhook, url: url, content: content})
}

func (d *Dispatcher) enqueue(t task) {
	select {
	case d.tasks <- t:
	default:
		d.log.WithField("task", t.kind).Warn("notification queue full, dropping task")
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	close(d.tasks)
	d.wg.Wait()
}
