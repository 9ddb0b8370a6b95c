package ingest

import (
	"chat-ingest/internal/queue"
	"chat-ingest/internal/storage/database"
)

func contactRecord(m *NormalizedMessage) *database.Contact {
	return &database.Contact{
		CompanyID:   m.CompanyID,
		ExternalID:  m.RoutingID,
		Phone:       m.Phone,
		DisplayName: m.Contact.DisplayName,
		ProfileName: m.Contact.ProfileName,
		IsBusiness:  m.Contact.IsBusiness,
		Extras:      m.Contact.Extras,
	}
}

func conversationRecord(m *NormalizedMessage, contactID string) *database.Conversation {
	return &database.Conversation{
		CompanyID:     m.CompanyID,
		GroupKey:      database.ConversationGroupKey(m.ConversationExternalID, contactID),
		ExternalID:    m.ConversationExternalID,
		ContactID:     contactID,
		RoutingID:     m.RoutingID,
		InstanceID:    m.InstanceID,
		LastMessageAt: m.Timestamp,
	}
}

func messageRecord(m *NormalizedMessage, conversationID, contactID string) *database.Message {
	return &database.Message{
		CompanyID:         m.CompanyID,
		ProviderMessageID: m.ProviderMessageID,
		GeneratedID:       m.GeneratedID,
		ConversationID:    conversationID,
		ContactID:         contactID,
		Direction:         string(m.Direction),
		Type:              string(m.Type),
		Status:            string(m.Status),
		StatusRank:        m.Status.Rank(),
		Body:              m.Body,
		Caption:           m.Caption,
		Timestamp:         m.Timestamp,
		ReplyToProviderID: m.ReplyToProviderID,
		Raw:               m.Raw,
	}
}

func mediaRecord(m *NormalizedMessage, messageID string, d MediaDescriptor) *database.MediaAttachment {
	return &database.MediaAttachment{
		MessageID:       messageID,
		CompanyID:       m.CompanyID,
		MediaKey:        d.Key,
		ProviderMediaID: d.ProviderMediaID,
		Type:            string(d.Type),
		URL:             d.URL,
		MimeType:        d.MimeType,
		FileName:        d.FileName,
		Size:            d.Size,
		Checksum:        d.Checksum,
		Metadata:        d.Metadata,
	}
}

func mediaJob(m *NormalizedMessage, msg *database.Message, conv *database.Conversation, attachments []*database.MediaAttachment) *queue.MediaJob {
	job := &queue.MediaJob{
		CompanyID:         m.CompanyID,
		MessageID:         msg.ID,
		ProviderMessageID: m.ProviderMessageID,
		ConversationID:    conv.ID,
		Attachments:       make([]queue.Attachment, 0, len(attachments)),
	}
	for _, a := range attachments {
		job.Attachments = append(job.Attachments, queue.Attachment{
			AttachmentID:    a.ID,
			MediaKey:        a.MediaKey,
			ProviderMediaID: a.ProviderMediaID,
			Type:            a.Type,
			URL:             a.URL,
			MimeType:        a.MimeType,
			FileName:        a.FileName,
			Checksum:        a.Checksum,
		})
	}
	return job
}
