// Package ticketing implements the Event, User and Ticket services on top
// of the record store.
//
// Events and users are plain records. Tickets link one user to one event,
// and the links are mirrored in inline id lists: an event's attendee_ids
// and ticket_ids, and a user's ticket_ids. [Relations] maintains those
// lists one record at a time. [Service] runs ticket create, update and
// delete as a unit of work: an ordered list of single-record commits.
// There is no multi-record transaction, so a failure between commits
// leaves the earlier commits in place unless [Options.Compensate] is set,
// in which case each committed step is undone in reverse order.
//
// Deleting an event or user does not touch tickets that reference it.
// Relation reads report such dangling references as [NotFoundError]s
// naming the missing record.
package ticketing
