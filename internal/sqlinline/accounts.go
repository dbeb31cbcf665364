package sqlinline

const QEnsureAccountsSchema = `--sql f8298c7d-9462-4e08-b795-7f5254553196
create table if not exists accounts (
    id bigint primary key,
    first_name text not null default '',
    username text not null default '',
    chat_id bigint not null default 0,
    image_credits integer not null default 0 check (image_credits >= 0),
    video_credits integer not null default 0 check (video_credits >= 0),
    language text not null default 'en',
    image_aspect_ratio text not null default '9:16',
    video_aspect_ratio text not null default '9:16',
    plan text not null default 'none',
    plan_expiry timestamptz,
    created_at timestamptz not null default now()
);
`

const QSelectAccount = `--sql 0048c4ac-4692-40cb-bfc3-7ad008f3146c
select id, first_name, username, chat_id, image_credits, video_credits,
       language, image_aspect_ratio, video_aspect_ratio, plan, plan_expiry, created_at
from accounts
where id = $1;
`

const QInsertAccount = `--sql 5dc23c30-b76e-47f6-ad1d-9bf3b6b3552d
insert into accounts (id, first_name, username, chat_id, image_credits, video_credits,
                      language, image_aspect_ratio, video_aspect_ratio)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
on conflict (id) do nothing;
`

const QUpdateAccountContact = `--sql 462a64e8-32b9-48a0-b3d9-afe80f495507
update accounts
set first_name = $2, username = $3, chat_id = $4
where id = $1;
`

const QSelectPreferences = `--sql ca1beef1-7c0f-46ba-b3b3-d263a956b7c5
select language, image_aspect_ratio, video_aspect_ratio
from accounts
where id = $1;
`

const QUpdateLanguage = `--sql 206207e7-58d6-4d1b-b891-5e4cd7ba313f
update accounts set language = $2 where id = $1;
`

const QUpdateAspectRatios = `--sql 664241fa-3025-4264-87a8-903a85290fec
update accounts set image_aspect_ratio = $2, video_aspect_ratio = $3 where id = $1;
`

const QSelectBalances = `--sql bf9430b2-2283-4ae1-ae4a-324eaa6eee74
select image_credits, video_credits from accounts where id = $1;
`

// The WHERE guard makes the decrement conditional: the affected-row count is
// the only success signal, so concurrent deductions race to zero safely.
const QDeductImageCredit = `--sql dad08dbb-4d57-47e8-a3b5-6585bafaf19d
update accounts set image_credits = image_credits - 1
where id = $1 and image_credits > 0;
`

const QDeductVideoCredit = `--sql 54ec4bf0-2439-4f30-b392-9765a4aede2b
update accounts set video_credits = video_credits - 1
where id = $1 and video_credits > 0;
`
