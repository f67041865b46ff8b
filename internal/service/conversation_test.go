package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fieldops.app/incidentbot/internal/checkpoint"
	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/model"
	"fieldops.app/incidentbot/internal/service"
	"fieldops.app/incidentbot/internal/transport/whatsapp"
)

var _ = Describe("ConversationService", func() {
	const identity = "5215598765432"

	var (
		ctx         context.Context
		checkpoints *checkpoint.MemoryStore
		classifier  *mockClassifier
		profiles    *mockProfiles
		tickets     *mockTickets
		logs        *mockLogs
		producer    *mockProducer
		downloader  *mockDownloader
		processor   *mockMediaProcessor
		svc         *service.ConversationService
	)

	registeredProfile := func() *model.Profile {
		return &model.Profile{
			Identity: identity,
			Name:     "Ana",
			Line:     "Línea 1",
			Shift:    "Mañana",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		checkpoints = checkpoint.NewMemoryStore()
		classifier = &mockClassifier{
			classifyFn: func(context.Context, string, string) ([]convo.Candidate, error) {
				return []convo.Candidate{{
					Code:       "MEC-001",
					Label:      "Falla de banda transportadora",
					Confidence: 0.9,
				}}, nil
			},
		}
		profiles = &mockProfiles{
			getFn: func(context.Context, string) (*model.Profile, error) {
				return registeredProfile(), nil
			},
		}
		tickets = &mockTickets{}
		logs = &mockLogs{}
		producer = &mockProducer{}
		downloader = &mockDownloader{}
		processor = &mockMediaProcessor{}

		engine := convo.NewEngine(convo.Capabilities{
			Classifier: classifier,
			Extractor:  &mockExtractor{},
			Catalog:    testCatalog(),
			Profiles:   profiles,
			Tickets:    tickets,
		}, checkpoints)

		svc = service.NewConversationService(
			engine, checkpoints, profiles, logs, producer, downloader, processor)
	})

	text := func(body string) whatsapp.IncomingMessage {
		return whatsapp.IncomingMessage{
			From:      identity,
			MessageID: "wamid.test",
			Type:      whatsapp.MessageTypeText,
			Text:      body,
		}
	}

	send := func(body string) string {
		GinkgoHelper()
		reply, err := svc.HandleMessage(ctx, text(body))
		Expect(err).NotTo(HaveOccurred())
		return reply
	}

	Describe("slash commands", func() {
		It("answers /ayuda with the command list", func() {
			reply := send("/ayuda")
			Expect(reply).To(ContainSubstring("Comandos disponibles"))
			Expect(reply).To(ContainSubstring("/reset"))
		})

		It("clears the checkpoint and log on /reset", func() {
			send("hola")
			st, err := checkpoints.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(st).NotTo(BeNil())

			reply := send("/reset")
			Expect(reply).To(ContainSubstring("Conversación reiniciada"))

			st, err = checkpoints.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(st).To(BeNil())
			Expect(logs.cleared).To(ContainElement(identity))
			Expect(profiles.deleted).To(BeEmpty())
		})

		It("also deletes the profile on /borrar", func() {
			reply := send("/borrar")
			Expect(reply).To(ContainSubstring("perfil y conversación han sido eliminados"))
			Expect(profiles.deleted).To(ConsistOf(identity))
			Expect(logs.cleared).To(ContainElement(identity))
		})

		It("deletes only the profile on /eliminar_usuario", func() {
			send("hola")
			reply := send("/eliminar_usuario")
			Expect(reply).To(ContainSubstring("perfil ha sido eliminado"))
			Expect(profiles.deleted).To(ConsistOf(identity))

			st, err := checkpoints.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(st).NotTo(BeNil())
		})

		It("points unknown commands at /ayuda", func() {
			reply := send("/typo")
			Expect(reply).To(ContainSubstring("Comando desconocido: /typo"))
			Expect(reply).To(ContainSubstring("/ayuda"))
		})
	})

	Describe("opening a conversation", func() {
		It("replies with only the greeting for a bare greeting", func() {
			reply := send("Hola!")
			Expect(reply).To(ContainSubstring("¡Hola Ana!"))
			Expect(classifier.callCount).To(BeZero())
		})

		It("greets and consumes a content-bearing first message", func() {
			reply := send("Se rompió la bomba de la línea 2")
			Expect(reply).To(ContainSubstring("¡Hola Ana!"))
			Expect(reply).To(ContainSubstring("\n\n"))
			Expect(reply).To(ContainSubstring("MEC-001"))
			Expect(classifier.callCount).To(Equal(1))
		})
	})

	Describe("media resolution", func() {
		audioMsg := func() whatsapp.IncomingMessage {
			return whatsapp.IncomingMessage{
				From:      identity,
				MessageID: "wamid.audio",
				Type:      whatsapp.MessageTypeAudio,
				MediaID:   "media-123",
				MimeType:  "audio/ogg",
			}
		}

		It("falls back to a text ask when the download fails", func() {
			downloader.downloadFn = func(context.Context, string) ([]byte, string, error) {
				return nil, "", errors.New("media endpoint returned 404")
			}
			reply, err := svc.HandleMessage(ctx, audioMsg())
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(ContainSubstring("problemas para procesar tu archivo adjunto"))
		})

		It("falls back when transcription fails", func() {
			processor.audioFn = func(context.Context, []byte, string, string) (model.Attachment, error) {
				return model.Attachment{}, errors.New("whisper unavailable")
			}
			reply, err := svc.HandleMessage(ctx, audioMsg())
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(ContainSubstring("problemas para procesar tu archivo adjunto"))
		})
	})

	Describe("commands racing an in-flight advance", func() {
		It("serializes a reset behind the advance's checkpoint write", func() {
			gated := newGatedCheckpoints()
			engine := convo.NewEngine(convo.Capabilities{
				Classifier: classifier,
				Extractor:  &mockExtractor{},
				Catalog:    testCatalog(),
				Profiles:   profiles,
				Tickets:    tickets,
			}, gated)
			svc = service.NewConversationService(
				engine, gated, profiles, logs, producer, downloader, processor)

			advanceDone := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(advanceDone)
				_, err := svc.HandleMessage(ctx, text("hola"))
				Expect(err).NotTo(HaveOccurred())
			}()
			Eventually(gated.saveStarted).Should(BeClosed())

			resetDone := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(resetDone)
				_, err := svc.HandleMessage(ctx, text("/reset"))
				Expect(err).NotTo(HaveOccurred())
			}()
			Consistently(resetDone).ShouldNot(BeClosed())

			close(gated.release)
			Eventually(advanceDone).Should(BeClosed())
			Eventually(resetDone).Should(BeClosed())

			st, err := gated.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(st).To(BeNil())
		})
	})

	Describe("a complete report", func() {
		It("saves the ticket, publishes the event, and logs both sides", func() {
			send("hola")
			send("La banda 3 está atorada y tira producto")
			send("1")
			send("Planta Norte")
			reply := send("Celda 3")
			Expect(reply).To(ContainSubstring("Resumen del incidente"))

			reply = send("1")
			Expect(reply).To(ContainSubstring("Folio"))
			Expect(tickets.saved).To(HaveLen(1))

			saved := tickets.saved[0]
			Expect(saved.Code).To(Equal("MEC-001"))
			Expect(saved.Plant).To(Equal("Planta Norte"))
			Expect(saved.Line).To(Equal("Línea 1"))
			Expect(saved.Shift).To(Equal("Mañana"))

			Expect(producer.events).To(HaveLen(1))
			Expect(producer.events[0].TicketID).To(Equal(saved.ID))
			Expect(producer.events[0].Code).To(Equal("MEC-001"))
			Expect(producer.events[0].Identity).To(Equal(identity))

			var userEntries, assistantEntries int
			var ticketRefs int
			for _, entry := range logs.entries {
				switch entry.Role {
				case model.LogRoleUser:
					userEntries++
				case model.LogRoleAssistant:
					assistantEntries++
				}
				if entry.TicketID != nil {
					Expect(*entry.TicketID).To(Equal(saved.ID))
					ticketRefs++
				}
			}
			Expect(userEntries).To(Equal(6))
			Expect(assistantEntries).To(Equal(6))
			Expect(ticketRefs).To(Equal(1))
		})
	})
})
